package gamesvc

import (
	"bytes"
	"context"
	"debug/elf"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/axondata/go-gamesvc/internal/runner"
	"go.uber.org/zap"
)

// repairInterpreters points every dynamically linked x86-64 executable under
// dir at the host's dynamic loader, taken from ReferenceBinary. It is
// advisory: every failure is logged at debug level and skipped.
func (p *SteamProvisioner) repairInterpreters(ctx context.Context, dir string, log *zap.Logger) {
	interp, ok := elfInterpreter(p.ReferenceBinary)
	if !ok || !isRegularFile(interp) {
		log.Debug("no usable reference interpreter, skipping repair",
			zap.String("reference", p.ReferenceBinary))
		return
	}

	var patched int
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Mode().Perm()&0o111 == 0 {
			return nil
		}
		current, ok := elfInterpreter(path)
		if !ok || current == interp {
			return nil
		}
		if _, err := p.runner.Run(ctx, runner.Command{
			Name: p.PatchelfPath,
			Args: []string{"--set-interpreter", interp, path},
		}); err != nil {
			log.Debug("patchelf failed", zap.String("file", path), zap.Error(err))
			return nil
		}
		patched++
		return nil
	})
	log.Info("interpreter repair finished", zap.Int("patched", patched), zap.String("interpreter", interp))
}

// elfInterpreter returns the PT_INTERP path of a dynamically linked x86-64
// ELF executable. ok is false for anything else.
func elfInterpreter(path string) (string, bool) {
	f, err := elf.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	if f.Machine != elf.EM_X86_64 {
		return "", false
	}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		data, err := io.ReadAll(prog.Open())
		if err != nil {
			return "", false
		}
		interp := string(bytes.TrimRight(data, "\x00"))
		return interp, interp != ""
	}
	return "", false
}
