package artifact

import "errors"

var (
	// ErrArtifactMissing is returned when no loadable artifact exists after
	// the single regeneration attempt.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrSymbolMissing is returned when an artifact loads but does not export
	// a usable entry point. It matches ErrArtifactMissing under errors.Is.
	ErrSymbolMissing = symbolMissing{}
)

type symbolMissing struct{}

func (symbolMissing) Error() string { return "entry point missing" }

func (symbolMissing) Is(target error) bool { return target == ErrArtifactMissing }
