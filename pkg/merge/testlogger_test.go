package merge

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type testLogger struct {
	sync.Mutex
	logrus.FieldLogger
	lastInfof  string
	lastWarnf  string
	lastErrorf string
}

func (l *testLogger) Infof(format string, args ...interface{}) {
	l.Lock()
	defer l.Unlock()
	l.lastInfof = fmt.Sprintf(format, args...)
}

func (l *testLogger) Warnf(format string, args ...interface{}) {
	l.Lock()
	defer l.Unlock()
	l.lastWarnf = fmt.Sprintf(format, args...)
}

func (l *testLogger) Errorf(format string, args ...interface{}) {
	l.Lock()
	defer l.Unlock()
	l.lastErrorf = fmt.Sprintf(format, args...)
}

func newTestLogger() *testLogger {
	return &testLogger{
		FieldLogger: logrus.New(),
	}
}
