package client

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/queue"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/transport"
)

const uploadSetJobName = "package-set-upload"

func init() {
	registry.AddJobType(uploadSetJobName, func() amboy.Job { return makeUploadSetJob() })
}

// package file signatures
var (
	debMagic  = []byte("!<arch>")
	rpmMagic  = []byte{0xed, 0xab, 0xee, 0xdb}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// sniffPackageType identifies a package file by its leading bytes,
// returning the corresponding media type or the empty string.
func sniffPackageType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil || n < 2 {
		return ""
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, debMagic):
		return "application/vnd.debian.binary-package"
	case bytes.HasPrefix(header, rpmMagic):
		return "application/x-rpm"
	case bytes.HasPrefix(header, zstdMagic):
		return "application/x-zstd-compressed-alpm-package"
	case bytes.HasPrefix(header, gzipMagic):
		return "application/x-gtar"
	default:
		return ""
	}
}

// isPackageFile reports whether the file is a package the local
// package system accepts.
func (c *Client) isPackageFile(path string) bool {
	detected := sniffPackageType(path)
	if detected == "" {
		return false
	}

	for _, mime := range c.PMS.MimeTypes() {
		if mime == detected {
			return true
		}
	}

	return false
}

// checkPackagerKeys makes sure packager signing material exists,
// obtaining it with the configured packager credentials when missing.
func (c *Client) checkPackagerKeys(ctx context.Context) error {
	pkg := c.Conf.Packager

	if pkg.User == "" || pkg.Password == "" {
		return errors.New("packager user and password are required (config [packager] or command line)")
	}

	if pkg.Project == "" || pkg.Store == "" {
		return errors.New("packager project and store are required (config [packager] or command line)")
	}

	c.UsePackagerKeys()

	if c.HasSignKeys() {
		return nil
	}

	c.say("Autoregistering computer...")

	return c.SaveSignKeys(ctx, pkg.User, pkg.Password)
}

// UploadFile sends a single file to the server store; package files
// additionally trigger repository creation.
func (c *Client) UploadFile(ctx context.Context, file string) error {
	if _, err := os.Stat(file); err != nil {
		return errors.Wrapf(err, "file not found: %s", file)
	}

	if err := c.checkPackagerKeys(ctx); err != nil {
		return err
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		return errors.WithStack(err)
	}

	isPackage := c.isPackageFile(absPath)

	c.say("Uploading file: %s", absPath)

	payload := map[string]interface{}{
		"project":    c.Conf.Packager.Project,
		"store":      c.Conf.Packager.Store,
		"is_package": isPackage,
	}

	if err := c.Request.Upload(ctx, transport.EndpointUploadPackage,
		payload, []string{absPath}, nil); err != nil {
		return errors.Wrapf(err, "uploading %s", absPath)
	}

	if isPackage {
		return c.CreateRepository(ctx, file)
	}

	return nil
}

// UploadSet walks directory and sends every file as part of one
// package set, then triggers repository creation. Files upload
// concurrently on a local queue.
func (c *Client) UploadSet(ctx context.Context, directory string) error {
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return errors.Errorf("directory not found: %s", directory)
	}

	if err := c.checkPackagerKeys(ctx); err != nil {
		return err
	}

	var files []string
	err = filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", directory)
	}

	if len(files) == 0 {
		return errors.Errorf("no files to upload in %s", directory)
	}

	q := queue.NewLocalLimitedSize(2, len(files)+1)
	if err := q.Start(ctx); err != nil {
		return errors.Wrap(err, "starting upload queue")
	}

	for _, file := range files {
		j := makeUploadSetJob()
		j.client = c
		j.Path = file
		j.Set = directory
		j.SetID(fmt.Sprintf("%s-%s", uploadSetJobName, uuid.New().String()))

		if err := q.Put(ctx, j); err != nil {
			return errors.Wrapf(err, "queueing upload of %s", file)
		}
	}

	amboy.WaitInterval(ctx, q, 10*time.Millisecond)

	if err := amboy.ResolveErrors(ctx, q); err != nil {
		return errors.Wrap(err, "uploading package set")
	}

	return c.CreateRepository(ctx, directory)
}

// CreateRepository asks the server to (re)build the repository that
// serves packageSet.
func (c *Client) CreateRepository(ctx context.Context, packageSet string) error {
	c.say("Creating repository operation...")

	payload := map[string]interface{}{
		"project":    c.Conf.Packager.Project,
		"packageset": packageSet,
	}

	return errors.Wrap(c.Request.Post(ctx, transport.EndpointCreateRepository, payload, nil),
		"creating repository")
}

type uploadSetJob struct {
	Path     string `bson:"path" json:"path" yaml:"path"`
	Set      string `bson:"set" json:"set" yaml:"set"`
	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`

	client *Client
}

func makeUploadSetJob() *uploadSetJob {
	j := &uploadSetJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    uploadSetJobName,
				Version: 1,
			},
		},
	}

	j.SetDependency(dependency.NewAlways())

	return j
}

func (j *uploadSetJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.client == nil {
		j.AddError(errors.New("job has no client attached"))

		return
	}

	absPath, err := filepath.Abs(j.Path)
	if err != nil {
		j.AddError(errors.WithStack(err))

		return
	}

	rel, err := filepath.Rel(j.Set, j.Path)
	if err != nil {
		j.AddError(errors.WithStack(err))

		return
	}

	grip.Info(message.Fields{
		"message": "uploading package set file",
		"file":    absPath,
		"set":     j.Set,
	})

	payload := map[string]interface{}{
		"project":    j.client.Conf.Packager.Project,
		"store":      j.client.Conf.Packager.Store,
		"packageset": j.Set,
		"path":       filepath.Dir(rel),
	}

	j.AddError(errors.Wrapf(
		j.client.Request.Upload(ctx, transport.EndpointUploadSet, payload, []string{absPath}, nil),
		"uploading %s", absPath))
}
