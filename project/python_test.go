package project

import "testing"

const pySource = `import os
import sys as system
from typing import List, Optional as Opt

class Greeter:
    def __init__(self):
        pass

def greet(name):
    return name

def _hidden():
    pass
`

func findSymbol(t *testing.T, symbols []Symbol, name string) Symbol {
	t.Helper()
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("symbol %q not found in %v", name, symbols)
	return Symbol{}
}

func hasUse(uses []Use, name string) bool {
	for _, u := range uses {
		if u.Name == name {
			return true
		}
	}
	return false
}

func TestParsePythonSymbols(t *testing.T) {
	res := parsePython("m.py", pySource)

	if len(res.Symbols) != 4 {
		t.Fatalf("expected 4 symbols, got %d: %v", len(res.Symbols), res.Symbols)
	}

	greeter := findSymbol(t, res.Symbols, "Greeter")
	if greeter.Kind != KindClass || greeter.Line != 5 || !greeter.Exported {
		t.Errorf("Greeter: expected exported class at line 5, got %+v", greeter)
	}
	init := findSymbol(t, res.Symbols, "__init__")
	if init.Kind != KindFunction || init.Exported {
		t.Errorf("__init__: expected unexported function, got %+v", init)
	}
	greet := findSymbol(t, res.Symbols, "greet")
	if greet.Line != 9 || !greet.Exported {
		t.Errorf("greet: expected exported at line 9, got %+v", greet)
	}
	hidden := findSymbol(t, res.Symbols, "_hidden")
	if hidden.Exported {
		t.Errorf("_hidden must not be exported")
	}
}

func TestParsePythonImports(t *testing.T) {
	res := parsePython("m.py", pySource)

	if len(res.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d: %v", len(res.Imports), res.Imports)
	}

	if res.Imports[0].Source != "os" || res.Imports[0].Imported[0] != "os" {
		t.Errorf("import os: got %+v", res.Imports[0])
	}
	if res.Imports[1].Source != "sys" || res.Imports[1].Imported[0] != "system" {
		t.Errorf("import sys as system: got %+v", res.Imports[1])
	}
	from := res.Imports[2]
	if from.Source != "typing" || len(from.Imported) != 2 ||
		from.Imported[0] != "List" || from.Imported[1] != "Opt" {
		t.Errorf("from typing import: got %+v", from)
	}
}

func TestParsePythonUses(t *testing.T) {
	res := parsePython("m.py", pySource)

	if !hasUse(res.Uses, "self") || !hasUse(res.Uses, "name") {
		t.Errorf("expected self and name among uses, got %v", res.Uses)
	}
	for _, banned := range []string{"greet", "Greeter", "def", "import", "os", "system"} {
		if hasUse(res.Uses, banned) {
			t.Errorf("%q must not be a use (keyword or declared)", banned)
		}
	}
}

func TestParsePythonCommentsIgnored(t *testing.T) {
	res := parsePython("c.py", "# import os\nx = 1  # trailing note\n")

	if len(res.Imports) != 0 {
		t.Errorf("commented import must not parse, got %v", res.Imports)
	}
	if hasUse(res.Uses, "trailing") || hasUse(res.Uses, "note") {
		t.Errorf("comment words leaked into uses: %v", res.Uses)
	}
	if !hasUse(res.Uses, "x") {
		t.Errorf("expected x among uses, got %v", res.Uses)
	}
}

func TestParsePythonMultiImport(t *testing.T) {
	res := parsePython("mi.py", "import os.path, json\n")

	if len(res.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %v", res.Imports)
	}
	if res.Imports[0].Source != "os.path" || res.Imports[0].Imported[0] != "os" {
		t.Errorf("import os.path should bind os, got %+v", res.Imports[0])
	}
	if res.Imports[1].Source != "json" {
		t.Errorf("expected json import, got %+v", res.Imports[1])
	}
}
