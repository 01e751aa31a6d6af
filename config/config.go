// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//nolint:gochecknoinits // Because we load the configs once, for the whole runtime.
func init() {
	loadFirstApplicationConfigFile()
	dotEnvPath := `.env`
	for range 5 {
		if err := godotenv.Load(dotEnvPath); err == nil {
			break
		}
		dotEnvPath = fmt.Sprintf(`../%v`, dotEnvPath)
	}
}

// MustLoadFromKey unmarshalls the provided application.yaml top level key into cfg.
func MustLoadFromKey(key string, cfg any) {
	if err := viper.UnmarshalKey(key, cfg); err != nil {
		log.Panic(errors.Wrapf(err, "failed to load config by key %q", key))
	}
}

func loadFirstApplicationConfigFile() {
	for _, f := range findAllApplicationConfigFiles() {
		viper.SetConfigFile(f)
		if err := viper.ReadInConfig(); err == nil {
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Panic(err)
		}
	}

	log.Panic(errors.New("could not find any application.yaml files"))
}

func findAllApplicationConfigFiles() []string {
	var hints []string
	if p, err := os.Getwd(); err == nil {
		hints = append(hints, p)
	}
	if p, err := os.Executable(); err == nil {
		hints = append(hints, filepath.Dir(p))
	}
	//nolint:dogsled // Only the caller file is needed.
	_, callerFile, _, _ := runtime.Caller(0)
	hints = append(hints, filepath.Join(filepath.Dir(callerFile), ".."))

	var files []string
	for _, dir := range hints {
		for _, pattern := range []string{
			filepath.Join(dir, ".testdata", "application.yaml"),
			filepath.Join(dir, "application.yaml"),
		} {
			if f, err := filepath.Glob(pattern); err != nil {
				log.Println(errors.Wrapf(err, "glob failed for [%v]", pattern))
			} else {
				files = append(files, f...)
			}
		}
	}

	return files
}
