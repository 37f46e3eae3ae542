package app

import (
	"encoding/base64"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadFile loads the TLS material referenced by location:
//
//	/path/cert.pem, file:///path/cert.pem  read from the local filesystem
//	env://NAME                             read from environment variable NAME
//	base64:...                             decoded inline
func LoadFile(location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file location %s", location)
	}

	switch u.Scheme {
	case "", "file":
		return os.ReadFile(u.Path)
	case "env":
		value, ok := os.LookupEnv(u.Host)
		if !ok {
			return nil, errors.Errorf("environment variable %s is not set", u.Host)
		}
		return []byte(value), nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(location, "base64:"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid inline base64 file")
		}
		return data, nil
	default:
		return nil, errors.Errorf("unsupported file location scheme %q", u.Scheme)
	}
}
