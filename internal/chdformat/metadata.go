package chdformat

import (
	"encoding/binary"
	"fmt"
)

// MetadataTag is a 4-character CHD metadata tag.
type MetadataTag string

// Track-metadata tags (CHD v5, MAME chd.h); CHTR and CHT2 cover CD-ROM,
// CHGD covers GD-ROM, both using the same KEY:VALUE payload format.
const (
	TagCDROM  MetadataTag = "CHTR"
	TagCDROM2 MetadataTag = "CHT2"
	TagGDROM  MetadataTag = "CHGD"
)

// WalkMetadata walks the metadata entry chain starting at the header's
// metadata offset, invoking fn with the raw payload of every entry whose
// tag is tag. Walking stops at the first error fn returns.
func (r *Reader) WalkMetadata(tag MetadataTag, fn func(payload []byte) error) error {
	offset := r.header.MetaOffset
	for offset != 0 {
		entryHeader := make([]byte, 16)
		if _, err := r.file.ReadAt(entryHeader, int64(offset)); err != nil {
			return fmt.Errorf("chd: read metadata entry at %d: %w", offset, err)
		}

		entryTag := MetadataTag(entryHeader[0:4])
		lengthFlags := binary.BigEndian.Uint32(entryHeader[4:8])
		length := lengthFlags & 0x00FFFFFF
		nextOffset := binary.BigEndian.Uint64(entryHeader[8:16])

		if entryTag == tag && length > 0 {
			payload := make([]byte, length)
			if _, err := r.file.ReadAt(payload, int64(offset)+16); err != nil {
				return fmt.Errorf("chd: read metadata payload at %d: %w", offset+16, err)
			}
			if err := fn(payload); err != nil {
				return err
			}
		}

		offset = nextOffset
	}
	return nil
}
