package avifmux

type writeConfig struct {
	premultipliedAlpha bool
}

// Option configures Serialize and SerializeToBuffer.
type Option func(*writeConfig)

// WithPremultipliedAlpha declares that the color channels were multiplied by
// alpha before encoding, so decoders undo the premultiplication. It only adds
// a "prem" reference from the color item to the alpha item; pixels are not
// touched. Ignored when there is no alpha.
func WithPremultipliedAlpha(v bool) Option {
	return func(c *writeConfig) { c.premultipliedAlpha = v }
}
