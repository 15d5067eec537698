package field

// Flags is the decoded form of a Luke-style field flag string, e.g. "ITS-M---".
type Flags struct {
	Indexed     bool
	Tokenized   bool
	Stored      bool
	MultiValued bool
}

// flagLetters maps a flag letter to its setter.
var flagLetters = map[rune]func(*Flags){
	'I': func(f *Flags) { f.Indexed = true },
	'T': func(f *Flags) { f.Tokenized = true },
	'S': func(f *Flags) { f.Stored = true },
	'M': func(f *Flags) { f.MultiValued = true },
}

// ParseFlags decodes a flag string. Unknown letters and placeholders are ignored.
func ParseFlags(s string) Flags {
	var fl Flags
	for _, r := range s {
		if set, ok := flagLetters[r]; ok {
			set(&fl)
		}
	}
	return fl
}

// Options converts decoded flags into field construction options.
func (fl Flags) Options() []Option {
	return []Option{
		WithIndexed(fl.Indexed),
		WithStored(fl.Stored),
		WithMultiValued(fl.MultiValued),
	}
}
