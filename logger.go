package tagcache

import "github.com/unkn0wn-root/tagcache/log"

// Fields is a minimal structured field map for logs.
type Fields = log.Fields

// Logger is the leveled logger the store writes to. See the log/zap,
// log/logrus and log/slog adapters.
type Logger = log.Logger

type NopLogger = log.Nop
