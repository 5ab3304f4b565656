package webserv

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"text/template"
	"time"
)

// Logger writes access and error information generated while serving
// requests: one text/template compiled once and filled in per call, guarded
// by a mutex because many goroutine-per-connection handlers share one sink.
type Logger struct {
	Enabled bool
	Format  string
	Output  io.Writer

	template   *template.Template
	bufferPool *sync.Pool
	mutex      sync.Mutex
	levels     []string
}

type loggerLevel uint8

const (
	lvlDebug loggerLevel = iota
	lvlInfo
	lvlWarn
	lvlError
	lvlFatal
)

// defaultLoggerFormat is a one-line JSON object: timestamp, level, the
// client address and request line when logging an access event, status and
// bytes written; log adds a "message" field when the call has one. Fields absent
// from a given call (there is no remote address for a startup message, no
// request line for a CGI failure) render as "-".
const defaultLoggerFormat = `{"time_rfc3339":"{{.time_rfc3339}}","level":"{{.level}}",` +
	`"remote_addr":"{{.remote_addr}}","request":"{{.request_line}}",` +
	`"status":"{{.status}}","bytes":"{{.bytes}}"}`

// NewLogger returns a Logger writing to os.Stdout with the default format,
// enabled.
func NewLogger() *Logger {
	return &Logger{
		Enabled: true,
		Format:  defaultLoggerFormat,
		Output:  os.Stdout,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
		levels: []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
	}
}

func (l *Logger) Debug(i ...interface{})            { l.log(lvlDebug, logFields{}, "", i...) }
func (l *Logger) Debugf(f string, a ...interface{}) { l.log(lvlDebug, logFields{}, f, a...) }

func (l *Logger) Info(i ...interface{})            { l.log(lvlInfo, logFields{}, "", i...) }
func (l *Logger) Infof(f string, a ...interface{}) { l.log(lvlInfo, logFields{}, f, a...) }

func (l *Logger) Warn(i ...interface{})            { l.log(lvlWarn, logFields{}, "", i...) }
func (l *Logger) Warnf(f string, a ...interface{}) { l.log(lvlWarn, logFields{}, f, a...) }

func (l *Logger) Error(i ...interface{})            { l.log(lvlError, logFields{}, "", i...) }
func (l *Logger) Errorf(f string, a ...interface{}) { l.log(lvlError, logFields{}, f, a...) }

func (l *Logger) Fatal(i ...interface{}) {
	l.log(lvlFatal, logFields{}, "", i...)
	os.Exit(1)
}
func (l *Logger) Fatalf(f string, a ...interface{}) {
	l.log(lvlFatal, logFields{}, f, a...)
	os.Exit(1)
}

// AccessEntry is one completed request, the fields a ConnectionHandler
// already has on hand once a response has been serialized.
type AccessEntry struct {
	RemoteAddr string
	Method     HttpMethod
	Target     string
	Version    HttpVersion
	Status     ErrorCode
	Bytes      int
}

// Access logs one completed request at INFO level, filling in the
// remote_addr/request/status/bytes fields the Debug/Info/Warn/Error methods
// above leave blank.
func (l *Logger) Access(e AccessEntry) {
	l.log(lvlInfo, logFields{
		RemoteAddr:  e.RemoteAddr,
		RequestLine: fmt.Sprintf("%s %s %s", e.Method, e.Target, e.Version),
		Status:      strconv.Itoa(int(e.Status)),
		Bytes:       strconv.Itoa(e.Bytes),
	}, "")
}

// logFields carries the per-call values the default format's request-scoped
// placeholders substitute; a zero value renders each as "-".
type logFields struct {
	RemoteAddr  string
	RequestLine string
	Status      string
	Bytes       string
}

func (f logFields) orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (l *Logger) log(lvl loggerLevel, fields logFields, format string, args ...interface{}) {
	if !l.Enabled {
		return
	}
	if l.template == nil {
		l.template = template.Must(template.New("logger").Parse(l.Format))
	}
	if l.bufferPool == nil {
		l.bufferPool = &sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}
	}

	message := ""
	switch {
	case format == "":
		if len(args) > 0 {
			message = fmt.Sprint(args...)
		}
	default:
		message = fmt.Sprintf(format, args...)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	data := map[string]interface{}{
		"time_rfc3339": time.Now().Format(time.RFC3339),
		"level":        l.levels[lvl],
		"remote_addr":  fields.orDash(fields.RemoteAddr),
		"request_line": fields.orDash(fields.RequestLine),
		"status":       fields.orDash(fields.Status),
		"bytes":        fields.orDash(fields.Bytes),
	}

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	if message != "" {
		s := buf.String()
		if i := buf.Len() - 1; i >= 0 && s[i] == '}' {
			buf.Truncate(i)
			buf.WriteString(`,"message":"`)
			buf.WriteString(message)
			buf.WriteString(`"}`)
		} else {
			buf.WriteByte(' ')
			buf.WriteString(message)
		}
	}
	buf.WriteByte('\n')
	l.Output.Write(buf.Bytes())
}
