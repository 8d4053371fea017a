package attrcrypt

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for attribute encryption events.
var (
	SignalAttributeDeclared = capitan.NewSignal("attrcrypt.attribute.declared", "Encrypted attribute declared")
	SignalEncryptStart      = capitan.NewSignal("attrcrypt.encrypt.start", "Encrypt pipeline beginning")
	SignalEncryptComplete   = capitan.NewSignal("attrcrypt.encrypt.complete", "Encrypt pipeline finished")
	SignalDecryptStart      = capitan.NewSignal("attrcrypt.decrypt.start", "Decrypt pipeline beginning")
	SignalDecryptComplete   = capitan.NewSignal("attrcrypt.decrypt.complete", "Decrypt pipeline finished")
)

// Keys for typed event data.
var (
	KeyClass     = capitan.NewStringKey("class")
	KeyAttribute = capitan.NewStringKey("attribute")
	KeyStorage   = capitan.NewStringKey("storage")
	KeyAlgorithm = capitan.NewStringKey("algorithm")
	KeySpecID    = capitan.NewStringKey("spec_id")
	KeyDuration  = capitan.NewDurationKey("duration")
	KeyError     = capitan.NewErrorKey("error")
)

// emitAttributeDeclared emits an event when a declaration freezes.
func emitAttributeDeclared(ctx context.Context, spec *AttributeSpec) {
	capitan.Emit(ctx, SignalAttributeDeclared,
		KeyClass.Field(spec.Class),
		KeyAttribute.Field(spec.Attribute),
		KeyStorage.Field(spec.Storage),
		KeyAlgorithm.Field(spec.Algorithm),
		KeySpecID.Field(spec.ID.String()),
	)
}

// emitEncryptStart emits an event when the write pipeline begins.
func emitEncryptStart(ctx context.Context, spec *AttributeSpec) {
	capitan.Emit(ctx, SignalEncryptStart,
		KeyClass.Field(spec.Class),
		KeyAttribute.Field(spec.Attribute),
		KeyAlgorithm.Field(spec.Algorithm),
	)
}

// emitEncryptDone emits an event when the write pipeline finishes.
func emitEncryptDone(ctx context.Context, spec *AttributeSpec, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyClass.Field(spec.Class),
		KeyAttribute.Field(spec.Attribute),
		KeyAlgorithm.Field(spec.Algorithm),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncryptComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncryptComplete, fields...)
	}
}

// emitDecryptStart emits an event when the read pipeline begins.
func emitDecryptStart(ctx context.Context, spec *AttributeSpec) {
	capitan.Emit(ctx, SignalDecryptStart,
		KeyClass.Field(spec.Class),
		KeyAttribute.Field(spec.Attribute),
		KeyAlgorithm.Field(spec.Algorithm),
	)
}

// emitDecryptDone emits an event when the read pipeline finishes.
func emitDecryptDone(ctx context.Context, spec *AttributeSpec, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyClass.Field(spec.Class),
		KeyAttribute.Field(spec.Attribute),
		KeyAlgorithm.Field(spec.Algorithm),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecryptComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecryptComplete, fields...)
	}
}
