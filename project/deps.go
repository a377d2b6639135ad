package project

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	pyReqNameRe  = regexp.MustCompile(`^[A-Za-z0-9._-]+`)
	tomlStringRe = regexp.MustCompile(`"([^"]*)"`)
)

// dependencyMap gathers declared dependencies from whatever manifests the
// workspace carries. Sources are independent: a broken file contributes
// nothing and blocks nothing else.
func (s *Scanner) dependencyMap() Dependencies {
	deps := Dependencies{
		Node:      map[string]string{},
		NodeDev:   map[string]string{},
		Python:    map[string]string{},
		PythonDev: map[string]string{},
	}
	s.readPackageJSON(&deps)
	s.readRequirements("requirements.txt", deps.Python)
	s.readRequirements("requirements-dev.txt", deps.PythonDev)
	s.readPyproject(deps.Python)
	return deps
}

func (s *Scanner) readPackageJSON(deps *Dependencies) {
	content, err := s.toolkit.ReadIfExists("package.json")
	if err != nil || content == "" {
		return
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if json.Unmarshal([]byte(content), &pkg) != nil {
		return
	}
	for name, spec := range pkg.Dependencies {
		deps.Node[name] = orUnspecified(spec)
	}
	for name, spec := range pkg.DevDependencies {
		deps.NodeDev[name] = orUnspecified(spec)
	}
}

func (s *Scanner) readRequirements(path string, into map[string]string) {
	content, err := s.toolkit.ReadIfExists(path)
	if err != nil || content == "" {
		return
	}
	for _, raw := range strings.Split(content, "\n") {
		line := raw
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue // blank, or a pip flag like -r/-e
		}
		if name, spec := splitRequirement(line); name != "" {
			into[name] = spec
		}
	}
}

// readPyproject scans pyproject.toml line-wise: the PEP 621 [project]
// dependencies array and the [tool.poetry.dependencies] table, excluding
// the python interpreter constraint. Deliberately lenient — a half-valid
// file still contributes what it can.
func (s *Scanner) readPyproject(into map[string]string) {
	content, err := s.toolkit.ReadIfExists("pyproject.toml")
	if err != nil || content == "" {
		return
	}

	section := ""
	inProjectDeps := false
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			inProjectDeps = false
			continue
		}

		if section == "project" {
			if !inProjectDeps && strings.HasPrefix(line, "dependencies") {
				eq := strings.Index(line, "=")
				if eq < 0 {
					continue
				}
				rest := line[eq+1:]
				if strings.Contains(rest, "[") {
					collectRequirementStrings(rest, into)
					inProjectDeps = !strings.Contains(rest, "]")
				}
				continue
			}
			if inProjectDeps {
				collectRequirementStrings(line, into)
				if strings.Contains(line, "]") {
					inProjectDeps = false
				}
			}
			continue
		}

		if section == "tool.poetry.dependencies" {
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			name := strings.Trim(strings.TrimSpace(line[:eq]), `"'`)
			if name == "" || name == "python" || strings.HasPrefix(name, "#") {
				continue
			}
			spec := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			into[name] = orUnspecified(spec)
		}
	}
}

func collectRequirementStrings(line string, into map[string]string) {
	for _, m := range tomlStringRe.FindAllStringSubmatch(line, -1) {
		if name, spec := splitRequirement(m[1]); name != "" {
			into[name] = spec
		}
	}
}

// splitRequirement splits "name>=1.2" style requirement text into the
// package name and its version spec.
func splitRequirement(line string) (string, string) {
	name := pyReqNameRe.FindString(line)
	if name == "" {
		return "", ""
	}
	return name, orUnspecified(line[len(name):])
}

func orUnspecified(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "unspecified"
	}
	return spec
}
