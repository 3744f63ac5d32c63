package types

// RecordKind discriminates archive records.
type RecordKind string

const (
	// RecordKindLoaded is produced for classes resolved through a loader.
	RecordKindLoaded RecordKind = "loaded"
	// RecordKindSource is produced for manifest entries carrying a source tag.
	RecordKindSource RecordKind = "source"
)

// ArchiveRecord is the unit the preprocessing engine persists for every
// class it processes. Field tags cover msgpack frames, JSON/YAML rendering
// and Lode JSONL records.
type ArchiveRecord struct {
	ContractVersion string     `msgpack:"contract_version" json:"contract_version" yaml:"contract_version"`
	RunID           string     `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	Name            string     `msgpack:"name" json:"name" yaml:"name"`
	Kind            RecordKind `msgpack:"kind" json:"kind" yaml:"kind"`
	Loader          LoaderKind `msgpack:"loader,omitempty" json:"loader,omitempty" yaml:"loader,omitempty"`
	Location        string     `msgpack:"location,omitempty" json:"location,omitempty" yaml:"location,omitempty"`
	Origin          string     `msgpack:"origin,omitempty" json:"origin,omitempty" yaml:"origin,omitempty"`
	SuperName       string     `msgpack:"super_name,omitempty" json:"super_name,omitempty" yaml:"super_name,omitempty"`
	InterfaceCount  int        `msgpack:"interface_count" json:"interface_count" yaml:"interface_count"`
	MajorVersion    uint16     `msgpack:"major_version,omitempty" json:"major_version,omitempty" yaml:"major_version,omitempty"`
	MinorVersion    uint16     `msgpack:"minor_version,omitempty" json:"minor_version,omitempty" yaml:"minor_version,omitempty"`
	SizeBytes       int64      `msgpack:"size_bytes,omitempty" json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	Digest          string     `msgpack:"digest,omitempty" json:"digest,omitempty" yaml:"digest,omitempty"`
	Timestamp       string     `msgpack:"ts" json:"ts" yaml:"ts"`
}
