// Package remote implements the remote cache backend (component D): an HTTP
// content store hit with GET/HEAD/PUT, plus a cold no-op fallback and an
// async publish queue so a slow or unreachable remote never blocks the hot
// path.
package remote

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// wireMagic identifies the v1 entry-transfer framing: magic BCE1, u32
// artifact count, then per artifact [u32 name-len][name][u64 size][bytes],
// followed by [u32 stdout-len][stdout][u32 stderr-len][stderr][i32
// return-code], all little-endian. encoding/binary covers this exact fixed
// layout directly; no ecosystem serialization format in the corpus speaks a
// custom binary frame like this one, so this corner is hand-rolled on the
// standard library by design, not by default.
var wireMagic = [4]byte{'B', 'C', 'E', '1'}

func encodeEntry(entry domain.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(wireMagic[:])

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(entry.Artifacts))); err != nil {
		return nil, zerr.Wrap(err, "failed to encode artifact count")
	}
	for _, a := range entry.Artifacts {
		name := []byte(a.Name)
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(name))); err != nil {
			return nil, zerr.Wrap(err, "failed to encode artifact name length")
		}
		buf.Write(name)
		if err := binary.Write(&buf, binary.LittleEndian, uint64(len(a.Data))); err != nil {
			return nil, zerr.Wrap(err, "failed to encode artifact size")
		}
		buf.Write(a.Data)
	}

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(entry.Stdout))); err != nil {
		return nil, zerr.Wrap(err, "failed to encode stdout length")
	}
	buf.Write(entry.Stdout)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(entry.Stderr))); err != nil {
		return nil, zerr.Wrap(err, "failed to encode stderr length")
	}
	buf.Write(entry.Stderr)
	if err := binary.Write(&buf, binary.LittleEndian, int32(entry.ReturnCode)); err != nil {
		return nil, zerr.Wrap(err, "failed to encode return code")
	}

	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (domain.CacheEntry, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read entry magic")
	}
	if magic != wireMagic {
		return domain.CacheEntry{}, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "bad entry magic"), "magic", string(magic[:]))
	}

	var artifactCount uint32
	if err := binary.Read(r, binary.LittleEndian, &artifactCount); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read artifact count")
	}

	artifacts := make([]domain.Artifact, 0, artifactCount)
	for i := uint32(0); i < artifactCount; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return domain.CacheEntry{}, zerr.Wrap(err, "failed to read artifact name length")
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return domain.CacheEntry{}, zerr.Wrap(err, "failed to read artifact name")
		}
		var size uint64
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return domain.CacheEntry{}, zerr.Wrap(err, "failed to read artifact size")
		}
		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			return domain.CacheEntry{}, zerr.Wrap(err, "failed to read artifact bytes")
		}
		artifacts = append(artifacts, domain.Artifact{Name: string(name), Data: content})
	}

	var stdoutLen uint32
	if err := binary.Read(r, binary.LittleEndian, &stdoutLen); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read stdout length")
	}
	stdout := make([]byte, stdoutLen)
	if _, err := io.ReadFull(r, stdout); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read stdout bytes")
	}

	var stderrLen uint32
	if err := binary.Read(r, binary.LittleEndian, &stderrLen); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read stderr length")
	}
	stderr := make([]byte, stderrLen)
	if _, err := io.ReadFull(r, stderr); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read stderr bytes")
	}

	var returnCode int32
	if err := binary.Read(r, binary.LittleEndian, &returnCode); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, "failed to read return code")
	}

	return domain.CacheEntry{
		Artifacts:  artifacts,
		Stdout:     stdout,
		Stderr:     stderr,
		ReturnCode: int(returnCode),
	}, nil
}
