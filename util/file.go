package util

import (
	"os"
	"path"
	"strings"
)

// WriteToFile writes the strings to the file separated by new lines,
// creating parent folders as needed
func WriteToFile(savePath string, content ...string) error {
	if dir := path.Dir(savePath); dir != "." {
		os.MkdirAll(dir, 0777)
	}
	return os.WriteFile(savePath, []byte(strings.Join(content, "\n")), 0644)
}

// AppendToFile appends the strings to the file, one per line
func AppendToFile(savePath string, content ...string) error {
	if dir := path.Dir(savePath); dir != "." {
		os.MkdirAll(dir, 0777)
	}
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, s := range content {
		if _, err = f.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// ReadLines returns the non-empty lines of the file
func ReadLines(filePath string) ([]string, error) {
	bs, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0)
	for _, line := range strings.Split(string(bs), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
