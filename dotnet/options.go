package dotnet

import "go.uber.org/zap"

// ParseOptions configures a parse. The zero value is valid.
type ParseOptions struct {
	logger            *zap.Logger
	strictConstraints bool
	headerOnly        bool
}

// NewParseOptions returns the default parse options.
func NewParseOptions() ParseOptions {
	return ParseOptions{}
}

// WithLogger sets the logger used for warnings of this parse. A nil logger
// falls back to the package logger.
func (o ParseOptions) WithLogger(l *zap.Logger) ParseOptions {
	o.logger = l
	return o
}

// WithStrictConstraints makes an unresolved generic parameter constraint a
// fatal error instead of a warning.
func (o ParseOptions) WithStrictConstraints(value bool) ParseOptions {
	o.strictConstraints = value
	return o
}

// WithHeaderOnly stops the parse after the assembly identity is resolved.
func (o ParseOptions) WithHeaderOnly(value bool) ParseOptions {
	o.headerOnly = value
	return o
}

func (o ParseOptions) log() *zap.Logger {
	if o.logger != nil {
		return o.logger
	}
	return Logger()
}
