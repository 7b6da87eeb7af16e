package cursor

import (
	"context"
	"fmt"
	"strings"
)

// Open creates a Cursor from a connection string:
//
//	""                      in-memory
//	"redis://host:6379/0"   Redis hash
//	"mongodb://host/db"     MongoDB collection
//	"./progress.json"       JSON file
func Open(ctx context.Context, url string) (Cursor, error) {
	switch {
	case url == "" || url == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedis(ctx, url)
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return NewMongo(ctx, url)
	case strings.HasPrefix(url, "file://"):
		return NewFile(strings.TrimPrefix(url, "file://")), nil
	case !strings.Contains(url, "://"):
		return NewFile(url), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, url)
	}
}
