package clipboard

import "crypto/sha256"

// ContentType identifies the payload carried by Content.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeRTF   ContentType = "rtf"
	ContentTypeImage ContentType = "image"
)

// Content is a clipboard snapshot. The remote-desktop wire protocol only
// carries ContentTypeText (see internal/protocol), but Provider stays
// general so a platform backend can report whatever it natively supports.
type Content struct {
	Type        ContentType
	Text        string
	RTF         []byte
	Image       []byte
	ImageFormat string
}

// Provider is a platform clipboard backend.
type Provider interface {
	GetContent() (Content, error)
	SetContent(content Content) error
}

// fingerprint hashes a Content so pollers can detect changes without
// comparing potentially large image/RTF payloads byte-for-byte each tick.
func fingerprint(content Content) [32]byte {
	hasher := sha256.New()
	hasher.Write([]byte(content.Type))
	hasher.Write([]byte(content.Text))
	hasher.Write(content.RTF)
	hasher.Write(content.Image)
	hasher.Write([]byte(content.ImageFormat))
	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}
