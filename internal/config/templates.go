package config

import (
	"fmt"
	"os"
	"strings"
)

// Template kinds.
const (
	KindDump = "dltdump"
	KindGen  = "dltgen"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindDump:
		return dumpTemplate, nil
	case KindGen:
		return genTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as the given kind and reports the first problem.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindDump:
		_, err := LoadDumpConfig(path)
		return err
	case KindGen:
		_, err := LoadScript(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const dumpTemplate = `# dltdump configuration

[input]
# file | pcap | tcp | udp
kind = "file"
# file | serial | network
framing = "file"
paths = ["capture.dlt"]
# addr = "127.0.0.1:3490"
chunk_size = 65536
# UDP destination port of pcap input; -1 keeps every port.
# port = 3490

[catalogue]
# TOML frame catalogues; directories load every *.toml in lexical order.
paths = []

[output]
# text | dlt
format = "text"
path = ""
framing = "file"
ecu = ""

[status]
# addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]

[tcp]
connect_timeout = "5s"
read_timeout = ""
max_attempts = 0

[tcp.backoff]
initial = "250ms"
multiplier = 2.0
max = "5s"
jitter = true
`

const genTemplate = `# dltgen line script
framing = "file"
output = "generated.dlt"
ecu = "ECU1"

[[line]]
app = "APP1"
ctx = "CTX1"
type = "log info"
time = 2023-05-16T12:24:22.055Z

[[line.arg]]
type = "string"
value = "Temperature is:"

[[line.arg]]
type = "sint"
width = 2
value = 45

[[line]]
app = "APP1"
ctx = "CTX2"
type = "log warn"
session = 42
device_time = "1.5s"

[[line.arg]]
type = "hex"
width = 2
value = 48879

[[line.arg]]
type = "raw"
value = "01 02 03"
`
