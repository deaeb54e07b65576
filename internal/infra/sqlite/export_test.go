package sqlite

var VersionFromFilename = versionFromFilename
