// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentberlin/sidewinder"
	"github.com/agentberlin/sidewinder/internal/app"
	"github.com/agentberlin/sidewinder/internal/blob"
	"github.com/agentberlin/sidewinder/internal/config"
	"github.com/agentberlin/sidewinder/internal/events"
	"github.com/agentberlin/sidewinder/internal/store"
	"github.com/agentberlin/sidewinder/storage"
)

// runtime is the service layer assembled from the configuration file's
// driver selections, together with the closers its backends need.
type runtime struct {
	app  *app.App
	file *config.File
	log  *logrus.Entry

	closers []func() error
}

// Close releases the backends that hold connections (redis, kafka).
func (r *runtime) Close() {
	for _, closeBackend := range r.closers {
		if err := closeBackend(); err != nil {
			r.log.Warnf("failed to close backend: %v", err)
		}
	}
}

// buildRuntime loads the configuration file and constructs the frontier,
// history, blob store and event sinks it selects.
func buildRuntime(cmd *cobra.Command) (*runtime, error) {
	file, err := loadFile(cmd)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		file: file,
		log:  newLogger(file, getVerboseFlag(cmd)),
	}

	var frontier storage.Frontier
	var history storage.History

	switch file.Frontier.Driver {
	case config.FrontierSQLite:
		st, err := openSQLite(file)
		if err != nil {
			return nil, err
		}
		frontier = st
		history = st
	case config.FrontierRedis:
		rf := store.NewRedisFrontier(
			file.Frontier.Redis.Addr,
			file.Frontier.Redis.Password,
			file.Frontier.Redis.DB,
			file.Frontier.Redis.Prefix,
		)
		rt.closers = append(rt.closers, rf.Close)
		frontier = rf

		// The crawl history still needs a durable home; it stays in sqlite.
		st, err := openSQLite(file)
		if err != nil {
			rt.Close()
			return nil, err
		}
		history = st
	case config.FrontierMemory:
		frontier = storage.NewInMemoryFrontier()
		history = storage.NewInMemoryHistory()
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownFrontierDriver, file.Frontier.Driver)
	}

	var blobs storage.Blobs
	switch file.Blobs.Driver {
	case config.BlobsFS:
		blobs, err = blob.NewFSStore(file.Blobs.FS.Root)
		if err != nil {
			rt.Close()
			return nil, err
		}
	case config.BlobsS3:
		blobs, err = blob.NewS3Store(blob.S3Config{
			Region:    file.Blobs.S3.Region,
			Bucket:    file.Blobs.S3.Bucket,
			AccessKey: file.Blobs.S3.AccessKey,
			SecretKey: file.Blobs.S3.SecretKey,
			Endpoint:  file.Blobs.S3.Endpoint,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
	default:
		rt.Close()
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBlobDriver, file.Blobs.Driver)
	}

	sink, err := buildSinks(rt, file)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.app = app.New(frontier, history, blobs, sink, nil, rt.log)
	return rt, nil
}

// buildSinks constructs the configured event sinks. With several configured
// the crawl events fan out to all of them.
func buildSinks(rt *runtime, file *config.File) (sidewinder.EventSink, error) {
	var sinks events.MultiSink
	for _, name := range file.Events.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, events.NewLogSink(rt.log))
		case config.SinkKafka:
			k := events.NewKafkaSink(file.Events.Kafka.Broker, file.Events.Kafka.Topic, rt.log)
			rt.closers = append(rt.closers, k.Close)
			sinks = append(sinks, k)
		default:
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownSink, name)
		}
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// openSQLite opens the sqlite store at the configured path, or the default
// ~/.sidewinder/sidewinder.db when no path is given.
func openSQLite(file *config.File) (*store.Store, error) {
	if file.Frontier.SQLite.Path != "" {
		st, err := store.NewStoreAtPath(file.Frontier.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %v", err)
		}
		return st, nil
	}
	st, err := store.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}
	return st, nil
}

// loadFile resolves and loads the configuration file. An explicitly given
// path that does not exist is an error; with no path and no file found in
// the search locations the built-in defaults apply.
func loadFile(cmd *cobra.Command) (*config.File, error) {
	explicit := getConfigFlag(cmd)
	path := config.Find(explicit)
	if path == "" {
		if explicit != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicit)
		}
		return config.Default(), nil
	}

	file, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %v", path, err)
	}
	return file, nil
}

// newLogger builds the process logger from the log section. The verbose
// flag forces debug level regardless of the configured one.
func newLogger(file *config.File, verbose bool) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(file.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if file.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logrus.NewEntry(logger)
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
