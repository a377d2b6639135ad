package project

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tsxgrammar "github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parsers bundles the per-language source parsers. A sitter.Parser is not
// safe for concurrent use; the scanner parses files serially.
type Parsers struct {
	ts  *sitter.Parser
	tsx *sitter.Parser
	js  *sitter.Parser
}

// NewParsers constructs the TS/TSX/JS parser set.
func NewParsers() *Parsers {
	newParser := func(lang *sitter.Language) *sitter.Parser {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		return p
	}
	return &Parsers{
		ts:  newParser(typescript.GetLanguage()),
		tsx: newParser(tsxgrammar.GetLanguage()),
		js:  newParser(javascript.GetLanguage()),
	}
}

// ParseFile extracts symbols, imports, and uses for one file. Languages
// without a parser, and files that fail to parse, yield an empty result:
// a scan never fails because of one bad file.
func (p *Parsers) ParseFile(path, language, content string) *ParseResult {
	switch language {
	case "typescript", "javascript":
		return p.parseScript(path, language, content)
	case "python":
		return parsePython(path, content)
	default:
		return &ParseResult{}
	}
}

func (p *Parsers) parserFor(path string) *sitter.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return p.tsx
	case ".ts":
		return p.ts
	default:
		return p.js
	}
}

func (p *Parsers) parseScript(path, language, content string) *ParseResult {
	res := &ParseResult{}
	src := []byte(content)

	tree, err := p.parserFor(path).ParseCtx(context.Background(), nil, src)
	if err != nil {
		return res
	}
	defer tree.Close()
	root := tree.RootNode()

	text := func(n *sitter.Node) string {
		return string(src[n.StartByte():n.EndByte()])
	}
	declared := map[string]bool{}
	addSymbol := func(name, kind string, node *sitter.Node, exported bool) {
		res.Symbols = append(res.Symbols, Symbol{
			Name: name, Kind: kind, Path: path,
			Line: int(node.StartPoint().Row) + 1, Language: language,
			Exported: exported,
		})
		declared[name] = true
	}

	collectDecl := func(node *sitter.Node, exported bool) {
		switch node.Type() {
		case "function_declaration", "generator_function_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				addSymbol(text(name), KindFunction, node, exported)
			}
		case "class_declaration", "abstract_class_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				addSymbol(text(name), KindClass, node, exported)
			}
		case "interface_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				addSymbol(text(name), KindInterface, node, exported)
			}
		case "type_alias_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				addSymbol(text(name), KindType, node, exported)
			}
		case "enum_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				addSymbol(text(name), KindEnum, node, exported)
			}
		case "lexical_declaration", "variable_declaration":
			// One symbol per declarator, identifier names only;
			// destructuring patterns are skipped.
			for i := 0; i < int(node.NamedChildCount()); i++ {
				decl := node.NamedChild(i)
				if decl.Type() != "variable_declarator" {
					continue
				}
				name := decl.ChildByFieldName("name")
				if name == nil || name.Type() != "identifier" {
					continue
				}
				addSymbol(text(name), KindVariable, decl, exported)
			}
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "export_statement":
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				collectDecl(decl, true)
			}
		case "import_statement":
			imp, bound := parseImportStatement(child, src, path, language)
			res.Imports = append(res.Imports, imp)
			for _, name := range bound {
				declared[name] = true
			}
		default:
			collectDecl(child, false)
		}
	}

	// Uses: every identifier reference whose text is not a declared name.
	var walkUses func(n *sitter.Node)
	walkUses = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier", "property_identifier", "type_identifier":
			if name := text(n); !declared[name] {
				res.Uses = append(res.Uses, Use{
					Name: name, Path: path,
					Line: int(n.StartPoint().Row) + 1, Language: language,
				})
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walkUses(n.NamedChild(i))
		}
	}
	walkUses(root)

	return res
}

// parseImportStatement decodes one import declaration: the module source,
// plus the default, namespace (recorded as "* as X"), and named local
// identifiers it binds.
func parseImportStatement(node *sitter.Node, src []byte, path, language string) (Import, []string) {
	text := func(n *sitter.Node) string {
		return string(src[n.StartByte():n.EndByte()])
	}
	imp := Import{
		Path: path, Line: int(node.StartPoint().Row) + 1, Language: language,
	}
	var bound []string

	if srcNode := node.ChildByFieldName("source"); srcNode != nil {
		imp.Source = strings.Trim(text(srcNode), "\"'`")
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			c := clause.NamedChild(j)
			switch c.Type() {
			case "identifier": // default import
				name := text(c)
				imp.Imported = append(imp.Imported, name)
				bound = append(bound, name)
			case "namespace_import":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					if id := c.NamedChild(k); id.Type() == "identifier" {
						imp.Imported = append(imp.Imported, "* as "+text(id))
						bound = append(bound, text(id))
					}
				}
			case "named_imports":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					if local == nil {
						continue
					}
					imp.Imported = append(imp.Imported, text(local))
					bound = append(bound, text(local))
				}
			}
		}
	}
	return imp, bound
}
