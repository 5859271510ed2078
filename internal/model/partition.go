package model

import "fmt"

// Partition is the language-scoped collection an item belongs to. It is
// chosen at ingestion, immutable afterwards, and (when dedup is enabled)
// scopes text uniqueness.
type Partition string

const (
	PartitionEN Partition = "en"
	PartitionES Partition = "es"
	PartitionFR Partition = "fr"
	PartitionDE Partition = "de"
	PartitionJA Partition = "ja"
)

var knownPartitions = map[Partition]bool{
	PartitionEN: true,
	PartitionES: true,
	PartitionFR: true,
	PartitionDE: true,
	PartitionJA: true,
}

// IsValid reports whether p is one of the supported language partitions.
func (p Partition) IsValid() bool {
	return knownPartitions[p]
}

// ParsePartition converts a wire string into a Partition, rejecting values
// outside the supported set.
func ParsePartition(s string) (Partition, error) {
	p := Partition(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown partition %q", ErrInvalidInput, s)
	}
	return p, nil
}
