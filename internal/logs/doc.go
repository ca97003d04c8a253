// Package logs reads the captured output of supervised servers.
//
// Last returns the final lines of a file, Since reads
// complete lines past an offset, and Follow polls for new lines until its
// context ends. Follow notices when the path is replaced (webui.log is
// repointed at each serve run) and restarts from the top of the new file.
package logs
