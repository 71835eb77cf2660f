package ir

// EngineVersion is stored with every recorded run so a run log shows which
// simulator produced it.
const EngineVersion = "0.1.0"
