package config

// Error is a configuration failure: an invalid or out-of-range value, or an
// unreadable or malformed settings file. Key is empty for file-level errors.
type Error struct {
	Key string
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Hint points the user at the commands that show and fix configuration.
func (e *Error) Hint() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return "Check the value with `gitmsg config view` and fix it with `gitmsg config set " + e.Key + " <value>`."
	}
	return "Check the configuration file syntax, or inspect it with `gitmsg config view`."
}
