package idwrap

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDWrap is the ULID identity every weighted row is addressed by.
type IDWrap struct {
	ulid ulid.ULID
}

func New(id ulid.ULID) IDWrap {
	return IDWrap{ulid: id}
}

func NewNow() IDWrap {
	return IDWrap{ulid: ulid.Make()}
}

func NewText(ulidString string) (IDWrap, error) {
	id, err := ulid.Parse(ulidString)
	if err != nil {
		return IDWrap{}, err
	}
	return IDWrap{ulid: id}, nil
}

func NewTextMust(ulidString string) IDWrap {
	id, err := NewText(ulidString)
	if err != nil {
		panic(err)
	}
	return id
}

func NewFromBytes(data []byte) (IDWrap, error) {
	var id ulid.ULID
	err := id.UnmarshalBinary(data)
	return IDWrap{ulid: id}, err
}

func (u IDWrap) String() string {
	return u.ulid.String()
}

func (u IDWrap) Bytes() []byte {
	return u.ulid[:]
}

func (u IDWrap) Compare(id IDWrap) int {
	return u.ulid.Compare(id.ulid)
}

// IsZero reports whether the id was never assigned.
func (u IDWrap) IsZero() bool {
	return u.ulid == ulid.ULID{}
}

func (u IDWrap) Time() time.Time {
	return time.UnixMilli(int64(u.ulid.Time())) //nolint:gosec // G115
}

// Value stores the id as its 16 raw bytes.
func (u IDWrap) Value() (driver.Value, error) {
	return u.ulid[:], nil
}

// Scan accepts the raw 16 byte form as well as the 26 character text form,
// since some drivers hand BLOB columns back as strings.
func (u *IDWrap) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		if len(v) == ulid.EncodedSize {
			return u.ulid.UnmarshalText(v)
		}
		return u.ulid.UnmarshalBinary(v)
	case string:
		if len(v) == ulid.EncodedSize {
			return u.ulid.UnmarshalText([]byte(v))
		}
		return u.ulid.UnmarshalBinary([]byte(v))
	case nil:
		u.ulid = ulid.ULID{}
		return nil
	default:
		return fmt.Errorf("idwrap: cannot scan %T", value)
	}
}

func (u IDWrap) MarshalText() ([]byte, error) {
	return u.ulid.MarshalText()
}

func (u *IDWrap) UnmarshalText(data []byte) error {
	return u.ulid.UnmarshalText(data)
}
