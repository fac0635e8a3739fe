package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// VarsFileEnv overrides the location of the vars file
const VarsFileEnv = "THREADPILOT_VARS_FILE"

// GetVarsFilePath returns $THREADPILOT_VARS_FILE or ~/.threadpilot/vars.txt
func GetVarsFilePath() (string, error) {
	if path := os.Getenv(VarsFileEnv); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadpilot", "vars.txt"), nil
}

// VarsFile is a name=value file. Lines starting with # are comments and an
// optional "export " prefix is ignored. Values containing newlines or
// surrounding spaces are written double-quoted.
type VarsFile struct {
	Path string
}

func openVarsFile() (*VarsFile, error) {
	path, err := GetVarsFilePath()
	if err != nil {
		return nil, err
	}
	return &VarsFile{Path: path}, nil
}

// Load reads the file; a missing file is empty
func (f *VarsFile) Load() (map[string]string, error) {
	vars := make(map[string]string)

	file, err := os.Open(f.Path)
	if os.IsNotExist(err) {
		return vars, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name, value, ok := parseVarLine(scanner.Text())
		if ok {
			vars[name] = value
		}
	}
	return vars, scanner.Err()
}

func parseVarLine(line string) (name, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	name, value, ok = strings.Cut(line, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
	}
	return name, value, true
}

func formatVarValue(value string) string {
	if strings.ContainsAny(value, "\n\r\"") || strings.TrimSpace(value) != value {
		return strconv.Quote(value)
	}
	return value
}

// Save replaces the file atomically, sorted by name, readable only by the owner
func (f *VarsFile) Save(vars map[string]string) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".vars-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, name := range sortedNames(vars) {
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, formatVarValue(vars[name])); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// update loads the file, applies fn and saves the result
func (f *VarsFile) update(fn func(map[string]string) error) error {
	vars, err := f.Load()
	if err != nil {
		return err
	}
	if err := fn(vars); err != nil {
		return err
	}
	return f.Save(vars)
}

func sortedNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LoadVarsFromFile() (map[string]string, error) {
	f, err := openVarsFile()
	if err != nil {
		return nil, err
	}
	return f.Load()
}

func GetVar(name string) (string, error) {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return "", err
	}
	value, ok := vars[name]
	if !ok {
		return "", fmt.Errorf("variable '%s' not found", name)
	}
	return value, nil
}

func SetVar(name, value string) error {
	f, err := openVarsFile()
	if err != nil {
		return err
	}
	return f.update(func(vars map[string]string) error {
		vars[name] = value
		return nil
	})
}

func DeleteVar(name string) error {
	f, err := openVarsFile()
	if err != nil {
		return err
	}
	return f.update(func(vars map[string]string) error {
		if _, ok := vars[name]; !ok {
			return fmt.Errorf("variable '%s' not found", name)
		}
		delete(vars, name)
		return nil
	})
}

func ListVars() ([]string, error) {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return nil, err
	}
	return sortedNames(vars), nil
}

// ResolveVariableValue returns the vars file value, else the config default
func ResolveVariableValue(v *Variable) (string, error) {
	fileVars, err := LoadVarsFromFile()
	if err != nil {
		return "", err
	}
	if fileValue, ok := fileVars[v.Name]; ok {
		return fileValue, nil
	}
	return v.Default, nil
}
