package types

// Version is the canonical project version.
// The CLI, the archive frame format, and the completion event contract
// share this version.
const Version = "0.3.0"

// ContractVersion is the version stamped on archive records and
// completion events. Lockstep with Version.
const ContractVersion = Version
