package fx

import (
	"github.com/mercatale/story-engine/internal/repositories/media"
	"github.com/mercatale/story-engine/internal/repositories/story"
	"go.uber.org/fx"
)

var Module = fx.Options(
	story.Module,
	media.Module,
)
