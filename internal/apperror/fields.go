package apperror

// Fields collects field-level validation problems so callers see all of them at once.
type Fields struct {
	items []ItemError
}

func (f *Fields) Check(ok bool, field, code, message string) {
	if !ok {
		f.items = append(f.items, ItemError{Field: field, Code: code, Message: message})
	}
}

func (f *Fields) Add(item ItemError) {
	f.items = append(f.items, item)
}

func (f *Fields) Empty() bool { return len(f.items) == 0 }

// Err returns nil when nothing was recorded.
func (f *Fields) Err() error {
	if len(f.items) == 0 {
		return nil
	}
	return ValidationItems("validation failed", f.items)
}
