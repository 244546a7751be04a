package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseProbeOutput exports parseProbeOutput for testing.
var ParseProbeOutput = parseProbeOutput

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// ChunkEncodingArgs exports chunkEncodingArgs for testing.
var ChunkEncodingArgs = chunkEncodingArgs

// TempDirPattern exports tempDirPattern for testing.
const TempDirPattern = tempDirPattern

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// DirMaker exports dirMaker interface for testing.
type DirMaker = dirMaker

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter
