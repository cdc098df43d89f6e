package emit

// compileTimeInterfaceChecks ensures every concrete emitter in this
// package satisfies Emitter.
var (
	_ Emitter = (*NullEmitter)(nil)
	_ Emitter = (*BufferedEmitter)(nil)
	_ Emitter = (*LogEmitter)(nil)
	_ Emitter = (*OTelEmitter)(nil)
	_ Emitter = (*TagFilter)(nil)
)
