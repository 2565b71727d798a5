// Package storage archiva los documentos de cada operación en una carpeta propia.
//
// El destino es un afero.Fs: disco local en producción (o un bucket montado en
// ARCHIVE_ROOT) y un MemMapFs en las pruebas.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

const folderPrefix = "Operacion_"

// Archive copia los archivos de la operación desde src hacia dst/Root.
type Archive struct {
	src     afero.Fs
	dst     afero.Fs
	root    string
	baseURL string
	log     zerolog.Logger
}

// NewArchive construye el archivador. src es el sistema de archivos donde el worker
// dejó los documentos; dst el destino del archivo.
func NewArchive(src, dst afero.Fs, cfg config.ArchiveConfig, log zerolog.Logger) *Archive {
	return &Archive{
		src:     src,
		dst:     dst,
		root:    cfg.Root,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log,
	}
}

// FolderName nombre de la carpeta de la operación: Operacion_<primer xml>_<runID[:6]>.
func FolderName(runID string, filenames []string) string {
	base := "documentos"
	for _, name := range filenames {
		if entity.KindOf(name) == entity.FileKindXML {
			base, _, _ = strings.Cut(filepath.Base(name), ".")
			break
		}
	}
	short := runID
	if len(short) > 6 {
		short = short[:6]
	}
	return folderPrefix + base + "_" + short
}

// Archive crea la carpeta de la operación y copia cada archivo. Un archivo que no
// existe o no se puede copiar se registra y se omite; solo falla si no se puede
// crear la carpeta. Devuelve la URL pública de la carpeta.
func (a *Archive) Archive(ctx context.Context, runID, localPath string, filenames []string) (string, error) {
	folder := FolderName(runID, filenames)
	target := filepath.Join(a.root, folder)
	if err := a.dst.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("storage: crear carpeta %s: %w", folder, err)
	}

	copied := 0
	for _, name := range filenames {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("storage: %w", err)
		}
		from := filepath.Join(localPath, name)
		exists, err := afero.Exists(a.src, from)
		if err != nil || !exists {
			a.log.Warn().Str("file", name).Msg("archivo no encontrado, se omite")
			continue
		}
		if err := a.copyFile(from, filepath.Join(target, filepath.Base(name))); err != nil {
			a.log.Warn().Err(err).Str("file", name).Msg("no se pudo archivar el archivo")
			continue
		}
		copied++
	}

	a.log.Info().Str("folder", folder).Int("files", copied).Int("requested", len(filenames)).Msg("operación archivada")
	return a.baseURL + "/" + url.PathEscape(folder), nil
}

func (a *Archive) copyFile(from, to string) error {
	content, err := afero.ReadFile(a.src, from)
	if err != nil {
		return fmt.Errorf("leer %s: %w", from, err)
	}
	if err := afero.WriteFile(a.dst, to, content, 0o644); err != nil {
		return fmt.Errorf("escribir %s: %w", to, err)
	}
	return nil
}
