package models

// Flag is a boolean attribute that a provider may leave unreported.
type Flag uint8

const (
	FlagUnset Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a known boolean into a Flag.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

func (f Flag) Known() bool { return f != FlagUnset }

// Bool reports the value of a known flag. An unset flag reads as false.
func (f Flag) Bool() bool { return f == FlagTrue }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unset"
	}
}
