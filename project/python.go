package project

import (
	"regexp"
	"strings"
)

var (
	pyDefRe    = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClassRe  = regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[(:]`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+(.+)$`)
	pyFromRe   = regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.+)$`)
	pyIdentRe  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}

// parsePython is a line-oriented parser: def/class declarations, both
// import forms, and a generous identifier-token use list. A name is
// exported unless it starts with an underscore.
func parsePython(path, content string) *ParseResult {
	res := &ParseResult{}
	declared := map[string]bool{}

	for i, raw := range strings.Split(content, "\n") {
		lineno := i + 1
		line := stripPyComment(raw)

		switch {
		case pyDefRe.MatchString(line):
			name := pyDefRe.FindStringSubmatch(line)[1]
			res.Symbols = append(res.Symbols, Symbol{
				Name: name, Kind: KindFunction, Path: path, Line: lineno,
				Language: "python", Exported: !strings.HasPrefix(name, "_"),
			})
			declared[name] = true

		case pyClassRe.MatchString(line):
			name := pyClassRe.FindStringSubmatch(line)[1]
			res.Symbols = append(res.Symbols, Symbol{
				Name: name, Kind: KindClass, Path: path, Line: lineno,
				Language: "python", Exported: !strings.HasPrefix(name, "_"),
			})
			declared[name] = true

		case pyFromRe.MatchString(line):
			m := pyFromRe.FindStringSubmatch(line)
			var names []string
			for _, part := range strings.Split(m[2], ",") {
				name := pyBoundName(part)
				if name == "" {
					continue
				}
				names = append(names, name)
				declared[name] = true
			}
			res.Imports = append(res.Imports, Import{
				Path: path, Line: lineno, Language: "python",
				Source: m[1], Imported: names,
			})
			continue

		case pyImportRe.MatchString(line):
			m := pyImportRe.FindStringSubmatch(line)
			for _, part := range strings.Split(m[1], ",") {
				module, alias := splitPyAlias(part)
				if module == "" {
					continue
				}
				bound := alias
				if bound == "" {
					// "import a.b" binds the top-level package name.
					bound = strings.SplitN(module, ".", 2)[0]
				}
				res.Imports = append(res.Imports, Import{
					Path: path, Line: lineno, Language: "python",
					Source: module, Imported: []string{bound},
				})
				declared[bound] = true
			}
			continue
		}

		for _, tok := range pyIdentRe.FindAllString(line, -1) {
			if pythonKeywords[tok] || declared[tok] {
				continue
			}
			res.Uses = append(res.Uses, Use{
				Name: tok, Path: path, Line: lineno, Language: "python",
			})
		}
	}
	return res
}

// pyBoundName returns the local name one "from x import" clause binds:
// the alias when present, otherwise the imported name itself.
func pyBoundName(part string) string {
	name, alias := splitPyAlias(part)
	if alias != "" {
		return alias
	}
	return name
}

func splitPyAlias(part string) (name, alias string) {
	fields := strings.Fields(strings.TrimSpace(part))
	if len(fields) == 0 {
		return "", ""
	}
	name = fields[0]
	if len(fields) >= 3 && fields[1] == "as" {
		alias = fields[2]
	}
	return name, alias
}

// stripPyComment drops a trailing # comment. Naive about # inside string
// literals, which is fine for an index this coarse.
func stripPyComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		return line[:i]
	}
	return line
}
