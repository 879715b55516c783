package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ahiokk/tirika-import/internal/common"
)

// CreateBackup copies the database file into targetDir, defaulting to an
// import_backups directory next to the database. It returns the backup path.
func (s *Store) CreateBackup(targetDir string) (string, error) {
	backupDir := targetDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(s.dbPath), "import_backups")
	}
	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		return "", err
	}

	base := filepath.Base(s.dbPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%s.db.bak", stem, time.Now().Format("20060102_150405"))
	backupPath := filepath.Join(backupDir, name)

	if err := copyFile(s.dbPath, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// backupWithFallback tries the default backup location and, on a permission
// failure, retries once into the user's data directory. The returned warning
// is non-empty when the fallback location was used.
func (s *Store) backupWithFallback() (path, warning string, err error) {
	path, err = s.CreateBackup("")
	if err == nil {
		return path, "", nil
	}
	if !isAccessDenied(err) {
		return "", "", common.NewStorageError("Не удалось создать backup", err)
	}

	fallbackPath, fallbackErr := s.CreateBackup(fallbackBackupDir())
	if fallbackErr != nil {
		return "", "", common.NewStorageError(
			"Не удалось создать backup ни рядом с базой, ни в пользовательской папке. "+
				"Снимите галочку backup перед импортом или запустите программу с правами администратора.",
			fallbackErr)
	}
	warning = fmt.Sprintf("Нет доступа к папке базы для backup. Backup сохранен в: %s", filepath.Dir(fallbackPath))
	return fallbackPath, warning, nil
}

func isAccessDenied(err error) bool {
	return errors.Is(err, os.ErrPermission) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM)
}

func fallbackBackupDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "Dazzle", "import_backups")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Dazzle", "import_backups")
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := destination.Sync(); err != nil {
		_ = destination.Close()
		return err
	}
	return destination.Close()
}
