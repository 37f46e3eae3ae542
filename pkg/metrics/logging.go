package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// NewRelicLogFormatter is a logrus.Formatter that forwards every entry to New
// Relic, including all logrus.Entry.Fields, and enriches the locally written
// line with New Relic linking metadata.
//
// Entries logged with a request context are attached to that request's
// transaction. Everything else is attributed to the application.
type NewRelicLogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewCustomNewRelicLogFormatter(app *newrelic.Application, formatter logrus.Formatter) NewRelicLogFormatter {
	return NewRelicLogFormatter{
		app:       app,
		formatter: formatter,
	}
}

func (f NewRelicLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	line, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(bytes.TrimRight(line, "\n"))

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	switch {
	case txn != nil:
		txn.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	case f.app != nil:
		f.app.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// forwardedMessage flattens the entry's fields into the message, since New
// Relic log records carry no structured attributes.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errorString := "<nil>"
	keys := make([]string, 0, len(e.Data))
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			if typed, ok := v.(error); ok {
				errorString = fmt.Sprintf("%q", typed.Error())
			}
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data bytes.Buffer
	data.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			data.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		value, err := json.Marshal(e.Data[k])
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(e.Data[k]))
		}
		data.Write(key)
		data.WriteByte(':')
		data.Write(value)
	}
	data.WriteByte('}')

	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errorString, data.String())
}
