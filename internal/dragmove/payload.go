package dragmove

import (
	"encoding/json"
	"fmt"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

// PayloadMIME is the transfer type of an internal entry drag. External
// file drags never carry it.
const PayloadMIME = "application/x-hivedeck-entry"

// PayloadKind tells an entry move apart from an external file drop.
type PayloadKind string

const (
	PayloadEntry PayloadKind = "entry"
	PayloadFiles PayloadKind = "files"
)

// Payload is the data carried by a drag gesture.
type Payload struct {
	Kind      PayloadKind        `json:"kind"`
	EntryID   int64              `json:"id,omitempty"`
	EntryKind models.Kind        `json:"entryKind,omitempty"`
	Files     []drive.UploadFile `json:"-"`
}

// EntryPayload describes a drag of a drive entry.
func EntryPayload(id int64, kind models.Kind) Payload {
	return Payload{Kind: PayloadEntry, EntryID: id, EntryKind: kind}
}

// FilesPayload describes an external drag of local files.
func FilesPayload(files []drive.UploadFile) Payload {
	return Payload{Kind: PayloadFiles, Files: files}
}

// IsEntryMove reports whether the payload moves a drive entry.
func (p Payload) IsEntryMove() bool {
	return p.Kind == PayloadEntry
}

// Encode serializes an entry payload for transfer under PayloadMIME.
func (p Payload) Encode() ([]byte, error) {
	if !p.IsEntryMove() {
		return nil, ErrNotEntryMove
	}
	return json.Marshal(p)
}

// DecodePayload parses data produced by Encode.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode drag payload: %w", err)
	}
	if !p.IsEntryMove() {
		return Payload{}, ErrNotEntryMove
	}
	return p, nil
}
