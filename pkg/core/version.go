package core

// EngineVersion is stamped into run records and exported archives.
const EngineVersion = "1.0.0"
