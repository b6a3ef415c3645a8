package chunk

// extractName pulls the identifier out of a chunk-starting node. It is
// per-language: it returns the text of the first direct child of the
// language's identifier kind, with language-specific fallbacks for the
// handful of node shapes (Go's field_identifier for methods, JS/TS's
// variable_declarator-wrapped const/let) that don't expose the
// identifier as a direct child. The grammar's name field is not
// consulted, and deeper descendants outside those fallbacks are not
// searched.
func extractName(n SyntaxNode, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return extractJSFamilyName(n, source)
	case "python":
		return extractPythonName(n, source)
	default:
		return firstChildOfKind(n, source, "identifier")
	}
}

func extractGoName(n SyntaxNode, source []byte) string {
	switch n.Kind() {
	case "function_declaration":
		return firstChildOfKind(n, source, "identifier")
	case "method_declaration":
		return firstChildOfKind(n, source, "field_identifier")
	case "type_declaration":
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == "type_spec" {
				if name := firstChildOfKind(c, source, "type_identifier"); name != "" {
					return name
				}
			}
		}
	case "const_declaration":
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == "const_spec" {
				if name := firstChildOfKind(c, source, "identifier"); name != "" {
					return name
				}
			}
		}
	case "var_declaration":
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == "var_spec" {
				if name := firstChildOfKind(c, source, "identifier"); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func extractJSFamilyName(n SyntaxNode, source []byte) string {
	if n.Kind() == "lexical_declaration" || n.Kind() == "variable_declaration" {
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == "variable_declarator" {
				if name := firstChildOfKind(c, source, "identifier"); name != "" {
					return name
				}
			}
		}
		return ""
	}
	if name := firstChildOfKind(n, source, "identifier"); name != "" {
		return name
	}
	return firstChildOfKind(n, source, "type_identifier")
}

func extractPythonName(n SyntaxNode, source []byte) string {
	return firstChildOfKind(n, source, "identifier")
}

func firstChildOfKind(n SyntaxNode, source []byte, kind string) string {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if kind == "" || c.Kind() == kind {
			return c.Text(source)
		}
	}
	return ""
}
