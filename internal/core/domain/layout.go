package domain

import "path/filepath"

const (
	// MemoDirName is the name of the internal workspace directory.
	MemoDirName = ".memo"

	// IndexDirName is the name of the materialization index directory.
	IndexDirName = "index"

	// RunsDirName is the name of the run record directory.
	RunsDirName = "runs"

	// WorkflowFileName is the name of the YAML workflow definition file.
	WorkflowFileName = "memo.yaml"

	// WorkflowHCLFileName is the name of the HCL workflow definition file.
	WorkflowHCLFileName = "memo.hcl"

	// RunFileName is the name of the run record file inside a run directory.
	RunFileName = "run.json"

	// EventsFileName is the name of the event log file inside a run directory.
	EventsFileName = "events.jsonl"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultMemoPath returns the default root directory for memo metadata.
func DefaultMemoPath() string {
	return MemoDirName
}

// DefaultIndexPath returns the default path for the materialization index.
// It joins .memo and index.
func DefaultIndexPath() string {
	return filepath.Join(MemoDirName, IndexDirName)
}

// DefaultRunsPath returns the default path for run records.
// It joins .memo and runs.
func DefaultRunsPath() string {
	return filepath.Join(MemoDirName, RunsDirName)
}

// WorkspaceRoot is the directory holding the workflow file. Store paths are
// resolved against it.
type WorkspaceRoot string

// IndexPath returns the materialization index directory under the root.
func (r WorkspaceRoot) IndexPath() string {
	return filepath.Join(string(r), DefaultIndexPath())
}

// RunsPath returns the run record directory under the root.
func (r WorkspaceRoot) RunsPath() string {
	return filepath.Join(string(r), DefaultRunsPath())
}
