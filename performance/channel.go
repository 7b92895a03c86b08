package performance

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"
)

// ChannelRef is a rule's channel: either a literal channel number (1-16)
// or the id of a named channel on the rule's device.
type ChannelRef struct {
	Number int
	ID     string
}

// ChannelNumber returns a literal channel reference
func ChannelNumber(n int) ChannelRef {
	return ChannelRef{Number: n}
}

// NamedChannel returns a reference to a device channel id
func NamedChannel(id string) ChannelRef {
	return ChannelRef{ID: id}
}

// IsZero reports whether the reference is unset
func (c ChannelRef) IsZero() bool {
	return c.Number == 0 && c.ID == ""
}

// Resolve returns the channel number (1-16) or false when the reference is
// unset or names a channel the device does not have.
func (c ChannelRef) Resolve(dev *Device) (int, bool) {
	if c.Number != 0 {
		return c.Number, true
	}
	if c.ID == "" {
		return 0, false
	}
	n := dev.ChannelNumber(c.ID)
	return n, n != 0
}

func (c ChannelRef) String() string {
	if c.Number != 0 {
		return strconv.Itoa(c.Number)
	}
	return c.ID
}

func (c ChannelRef) MarshalJSON() ([]byte, error) {
	if c.Number != 0 {
		return json.Marshal(c.Number)
	}
	if c.ID != "" {
		return json.Marshal(c.ID)
	}
	return []byte("null"), nil
}

func (c *ChannelRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ChannelRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fault.Wrap(err, fmsg.With("channel id"), ftag.With(ftag.InvalidArgument))
		}
		*c = ChannelRef{ID: id}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fault.Wrap(err, fmsg.With("channel must be a number or a channel id"), ftag.With(ftag.InvalidArgument))
	}
	*c = ChannelRef{Number: n}
	return nil
}

func (c ChannelRef) MarshalYAML() (any, error) {
	if c.Number != 0 {
		return c.Number, nil
	}
	return c.ID, nil
}

func (c *ChannelRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fault.Wrap(fault.New("channel must be a scalar"), ftag.With(ftag.InvalidArgument))
	}
	if value.Tag == "!!int" {
		n, err := strconv.Atoi(value.Value)
		if err != nil {
			return fault.Wrap(err, fmsg.With("channel number"), ftag.With(ftag.InvalidArgument))
		}
		*c = ChannelRef{Number: n}
		return nil
	}
	if value.Tag == "!!null" {
		*c = ChannelRef{}
		return nil
	}
	*c = ChannelRef{ID: value.Value}
	return nil
}
