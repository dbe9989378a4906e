package dlog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// Archiver moves the current log files into a dated directory. Writes that
// arrive while an archive runs wait for it to finish.
type Archiver struct {
	Dir   string
	Now   func() time.Time
	mutex sync.Mutex
	files []*archiveFile
}

type archiveFile struct {
	archiver *Archiver
	name     string
	file     *os.File
}

func (a *Archiver) open(name string) (*archiveFile, error) {
	file, err := os.OpenFile(logPath(a.Dir, name), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	f := &archiveFile{archiver: a, name: name, file: file}
	a.files = append(a.files, f)
	return f, nil
}

func (f *archiveFile) Write(p []byte) (int, error) {
	f.archiver.mutex.Lock()
	defer f.archiver.mutex.Unlock()
	return f.file.Write(p)
}

func (f *archiveFile) Close() error {
	f.archiver.mutex.Lock()
	defer f.archiver.mutex.Unlock()
	return f.file.Close()
}

func (a *Archiver) process() {
	if err := a.Archive(); err != nil {
		Error("Failed to archive logs", Err(err))
	}
}

// Archive copies every open log file into <dir>/<yesterday>[-n] and truncates it.
func (a *Archiver) Archive() error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	archived, err := a.archive(now())
	for name, written := range archived {
		Log.Debug("Archived log", "fileName", name, "written", written)
	}
	return err
}

// archive holds the write lock, so it must not log.
func (a *Archiver) archive(now time.Time) (map[string]int64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	archived := make(map[string]int64, len(a.files))
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	archiveDir := logPath(a.Dir, yesterday)
	tmp := archiveDir
	counter := 1
	err := os.Mkdir(archiveDir, 0755)
	for os.IsExist(err) {
		archiveDir = tmp + "-" + strconv.Itoa(counter)
		counter++
		err = os.Mkdir(archiveDir, 0755)
	}
	if err != nil {
		return archived, fmt.Errorf("create archive directory: %w", err)
	}

	for _, f := range a.files {
		written, err := copyFile(logPath(archiveDir, f.name), logPath(a.Dir, f.name))
		if err != nil {
			return archived, err
		}
		if err = f.file.Truncate(0); err != nil {
			return archived, fmt.Errorf("truncate %s: %w", f.name, err)
		}
		archived[f.name] = written
	}
	return archived, nil
}

func copyFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", dst, err)
	}
	defer out.Close()
	return io.Copy(out, in)
}
