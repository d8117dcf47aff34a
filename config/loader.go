package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

var FilePath string

type Loader interface {
	GetConfig() (Config, error)
}

type localLoader struct{}

func (l localLoader) GetConfig() (Config, error) {
	result := FromEnv()

	if FilePath == "" {
		return result, nil
	}

	f, err := os.Open(FilePath)
	if err != nil {
		return result, errors.Wrap(err, "open config file failed")
	}
	defer f.Close()

	jd := json.NewDecoder(f)
	if err = jd.Decode(&result); err != nil {
		return result, errors.Wrap(err, "parse config failed")
	}

	if err = Verify(&result); err != nil {
		return result, err
	}
	return result, nil
}

func NewConfigLoader() Loader {
	return localLoader{}
}
