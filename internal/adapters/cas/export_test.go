package cas

var VersionFile = (*Store).versionFile
