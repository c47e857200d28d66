package sync

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/sidkik/foldersync/pkg/errors"
)

// ChunkSize is the size of the reads used to stream a file into a digest.
const ChunkSize = 64 * 1024

// DefaultDigest is the digest used when none is configured.
const DefaultDigest = "sha256"

// A Digest computes a fixed-size cryptographic fingerprint of a file's
// contents.
type Digest interface {
	Name() string
	Sum(fs afero.Fs, path string) ([]byte, error)
}

var digests = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake2b": func() hash.Hash {
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	},
}

// DigestNames returns the names accepted by NewDigest, sorted.
func DigestNames() []string {
	var names []string
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDigest returns the digest with the given name.
func NewDigest(name string) (Digest, error) {
	newHash, ok := digests[name]
	if !ok {
		return nil, errors.New("unknown digest %q", name)
	}
	return hashDigest{name: name, newHash: newHash}, nil
}

type hashDigest struct {
	name    string
	newHash func() hash.Hash
}

func (d hashDigest) Name() string {
	return d.name
}

// Sum streams the file at `path` into the hash, ChunkSize bytes at a time.
func (d hashDigest) Sum(fs afero.Fs, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	defer f.Close()

	hasher := d.newHash()
	buf := make([]byte, ChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewIOError("read", path, err)
		}
	}
	return hasher.Sum(nil), nil
}

// SameContents returns whether the files at `a` and `b` have identical
// contents. Files of different sizes are unequal without being hashed.
func SameContents(fs afero.Fs, digest Digest, a, b string) (bool, error) {
	aInfo, err := fs.Stat(a)
	if err != nil {
		return false, errors.NewIOError("stat", a, err)
	}

	bInfo, err := fs.Stat(b)
	if err != nil {
		return false, errors.NewIOError("stat", b, err)
	}

	if aInfo.Size() != bInfo.Size() {
		return false, nil
	}

	aSum, err := digest.Sum(fs, a)
	if err != nil {
		return false, err
	}

	bSum, err := digest.Sum(fs, b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(aSum, bSum), nil
}
