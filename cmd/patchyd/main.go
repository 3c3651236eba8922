// Command patchyd runs the HTTP bundle-diffing service: it accepts
// uploaded red/green file pairs, stores them, and serves their computed
// patch back as a unified diff or an HTML view.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.etcd.io/bbolt"

	"github.com/thehowl/patchkit/pkg/db"
	httpapi "github.com/thehowl/patchkit/pkg/http"
	"github.com/thehowl/patchkit/pkg/storage"
)

type opts struct {
	listenAddr     string
	publicURL      string
	dbFile         string
	s3Endpoint     string
	s3AccessKey    string
	s3AccessSecret string
	s3Bucket       string
	cacheSizeMB    string
}

func defaultEnv(s, def string) string {
	v, ok := os.LookupEnv(s)
	if ok {
		return v
	}
	return def
}

func stringVar(p *string, fg, defaultValue, usage string) {
	ev := strings.ReplaceAll(strings.ToUpper(fg), "-", "_")
	flag.StringVar(p, fg, defaultEnv(ev, defaultValue), usage+". env var: "+ev)
}

func main() {
	var o opts
	stringVar(&o.listenAddr, "listen-addr", ":18844", "listen address for the web server")
	stringVar(&o.publicURL, "public-url", "http://localhost:18844", "url for the server, used in the curl example")
	stringVar(&o.dbFile, "db-file", "data/db.bolt", "the file used for the database. "+
		"this will be a cache (if used together with s3) or the permanent database")
	stringVar(&o.s3Endpoint, "s3-endpoint", "", "s3 endpoint; if unset, objects are stored directly in db-file")
	stringVar(&o.s3AccessKey, "s3-access-key", "", "s3 access key")
	stringVar(&o.s3AccessSecret, "s3-access-secret", "", "s3 access secret")
	stringVar(&o.s3Bucket, "s3-bucket", "patchkit", "s3 bucket")
	stringVar(&o.cacheSizeMB, "cache-size-mb", "256", "size in MB of the local cache fronting s3 storage")
	flag.Parse()

	if err := os.MkdirAll(dirOf(o.dbFile), 0o755); err != nil {
		panic(fmt.Errorf("creating db directory: %w", err))
	}

	bdb, err := bbolt.Open(o.dbFile, 0o600, nil)
	if err != nil {
		panic(fmt.Errorf("db open error: %w", err))
	}

	srv := &httpapi.Server{
		PublicURL: o.publicURL,
		DB:        &db.DB{DB: bdb},
		Output:    os.Stdout,
		Storage:   buildStorage(o, bdb),
	}

	fmt.Println("listening on", o.listenAddr)
	panic(http.ListenAndServe(o.listenAddr, srv.Router()))
}

func buildStorage(o opts, bdb *bbolt.DB) storage.Storage {
	cache := storage.NewDBStorage(bdb, []byte("storage"))
	if o.s3Endpoint == "" {
		return cache
	}

	minioClient, err := minio.New(o.s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.s3AccessKey, o.s3AccessSecret, ""),
		Secure: true,
	})
	if err != nil {
		panic(fmt.Errorf("minio init error: %w", err))
	}
	permanent := storage.NewMinioStorage(minioClient, o.s3Bucket)

	var cacheSizeMB uint64
	if _, err := fmt.Sscanf(o.cacheSizeMB, "%d", &cacheSizeMB); err != nil || cacheSizeMB == 0 {
		cacheSizeMB = 256
	}

	cached, err := storage.NewCachedStorage(cache, permanent, cacheSizeMB<<20)
	if err != nil {
		panic(fmt.Errorf("cache init error: %w", err))
	}
	return cached
}

func dirOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return "."
}
