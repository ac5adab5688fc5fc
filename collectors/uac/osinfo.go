package uac

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OSInfo is what a collection says about the machine it came from.
type OSInfo struct {
	Hostname string
	Release  map[string]string
}

func (i OSInfo) PrettyName() string {
	if v := i.Release["PRETTY_NAME"]; v != "" {
		return v
	}
	return strings.TrimSpace(i.Release["NAME"] + " " + i.Release["VERSION_ID"])
}

// ReadOSInfo reads the collected os-release and hostname files of a bundle.
// It fails only when neither is present.
func ReadOSInfo(bundle string) (OSInfo, error) {
	root := filepath.Join(bundle, "[root]")
	info := OSInfo{Release: map[string]string{}}

	var err error
	var data []byte
	for _, p := range []string{"etc/os-release", "usr/lib/os-release"} {
		data, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err == nil {
			info.Release = parseOSRelease(data)
			break
		}
	}

	host, herr := os.ReadFile(filepath.Join(root, "etc", "hostname"))
	if herr == nil {
		info.Hostname = strings.TrimSpace(string(host))
	}
	if err != nil && herr != nil {
		return OSInfo{}, errors.Join(err, herr)
	}
	return info, nil
}

func parseOSRelease(data []byte) map[string]string {
	out := make(map[string]string)
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if uq, err := strconv.Unquote(v); err == nil {
			v = uq
		} else {
			v = strings.Trim(v, `'"`)
		}
		out[k] = v
	}
	return out
}
