package quic

import (
	"encoding/hex"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/quincequic/quince/transport"
)

type logLevel int

// Log levels
const (
	levelOff logLevel = iota
	levelError
	levelInfo
	levelDebug
	levelTrace
)

func (l logLevel) toLogrus() logrus.Level {
	switch l {
	case levelError:
		return logrus.ErrorLevel
	case levelInfo:
		return logrus.InfoLevel
	case levelDebug:
		return logrus.DebugLevel
	case levelTrace:
		return logrus.TraceLevel
	default:
		return logrus.PanicLevel
	}
}

// logger logs QUIC transactions through a shared logrus.Logger, one
// per Client/Server.
type logger struct {
	level logLevel
	log   *logrus.Logger
}

func newLogger() *logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.ErrorLevel)
	return &logger{level: levelError, log: l}
}

func (s *logger) setLevel(level logLevel, w io.Writer) {
	s.level = level
	if level == levelOff {
		s.log.SetOutput(io.Discard)
		return
	}
	s.log.SetOutput(w)
	s.log.SetLevel(level.toLogrus())
}

// attachLogger wires per-packet transport.LogEvent callbacks into this
// logger, but only once the level is debug or above: below that,
// wire-level logging would overwhelm anything but a focused trace
// session. The endpoint itself writes no separate accept/close/error
// lines; those reach the Handler as EventConnAccept/EventConnClose.
func (s *logger) attachLogger(c *remoteConn) {
	if s.level < levelDebug {
		return
	}
	entry := s.log.WithField("addr", c.addr.String()).WithField("scid", hex.EncodeToString(c.conn.SCID()))
	c.conn.SetLogger(func(e transport.LogEvent) {
		logTransportEvent(entry, e)
	})
}

func (s *logger) detachLogger(c *remoteConn) {
	c.conn.SetLogger(nil)
}

func logTransportEvent(entry *logrus.Entry, e transport.LogEvent) {
	fields := make(logrus.Fields, len(e.Fields))
	for _, f := range e.Fields {
		if f.Str != "" {
			fields[f.Key] = f.Str
		} else {
			fields[f.Key] = f.Num
		}
	}
	entry.WithTime(e.Time).WithFields(fields).Debug(e.Type)
}
