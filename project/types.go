// Package project builds and serves the workspace code index: per-file
// language detection, symbol/import/use extraction, dependency manifests,
// and the lookup operations the agent exposes as tools. Scans are
// memoized; concurrent callers share a single in-flight build.
package project

// Symbol kinds recorded in the index.
const (
	KindFunction  = "function"
	KindClass     = "class"
	KindInterface = "interface"
	KindType      = "type"
	KindEnum      = "enum"
	KindVariable  = "variable"
)

// Symbol is one top-level declaration.
type Symbol struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Language string `json:"language"`
	Exported bool   `json:"exported"`
}

// Import is one import statement, with the local names it binds.
type Import struct {
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Language string   `json:"language"`
	Source   string   `json:"source"`
	Imported []string `json:"imported"`
}

// Use is one identifier reference. The collection is deliberately
// generous: property and type positions are included, so reference
// lookups are cheap but may over-report.
type Use struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Language string `json:"language"`
}

// FileInfo summarizes one scanned file.
type FileInfo struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	SizeBytes int64  `json:"size_bytes"`
	LineCount int    `json:"line_count"`
}

// Dependencies holds the declared package manifests, split by ecosystem.
// Missing version specs record the literal "unspecified".
type Dependencies struct {
	Node      map[string]string `json:"node"`
	NodeDev   map[string]string `json:"nodeDev"`
	Python    map[string]string `json:"python"`
	PythonDev map[string]string `json:"pythonDev"`
}

// Index is the persisted scan result.
type Index struct {
	GeneratedAt       string         `json:"generated_at"`
	WorkspaceRoot     string         `json:"workspace_root"`
	TotalFilesScanned int            `json:"total_files_scanned"`
	Languages         map[string]int `json:"languages"`
	Files             []FileInfo     `json:"files"`
	Symbols           []Symbol       `json:"symbols"`
	Imports           []Import       `json:"imports"`
	Uses              []Use          `json:"uses"`
	Dependencies      Dependencies   `json:"dependencies"`
}

// ParseResult is what a language parser extracts from one file.
type ParseResult struct {
	Symbols []Symbol
	Imports []Import
	Uses    []Use
}
