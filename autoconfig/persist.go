package autoconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/snksoft/crc"
)

// crcLinePrefix starts the trailing checksum line of the on-disk shape: the
// flat JSON document from Serialize, followed by that line. A mismatch is
// treated exactly like a malformed document: the caller keeps whatever
// config it already had.
const crcLinePrefix = "# crc32="

// EncodeForFile serializes c and appends a CRC-32 line over the JSON body.
// A write torn inside the checksum line fails the checksum; a write torn
// before it loses the line, so the truncated body is left to the JSON
// parser to reject.
func EncodeForFile(c Config) ([]byte, error) {
	body, err := Serialize(c)
	if err != nil {
		return nil, err
	}
	sum := crc.CalculateCRC(crc.CRC32, body)
	var buf bytes.Buffer
	buf.Write(body)
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "%s%08x\n", crcLinePrefix, sum)
	return buf.Bytes(), nil
}

// DecodeFromFile reverses EncodeForFile. A missing checksum line is
// treated as a plain (un-checksummed) document; a present but mismatched
// checksum is an error, same as malformed JSON.
func DecodeFromFile(raw []byte) (Config, error) {
	body, wantSum, hasSum, err := splitChecksum(raw)
	if err != nil {
		return Config{}, err
	}
	if hasSum {
		gotSum := crc.CalculateCRC(crc.CRC32, body)
		if gotSum != wantSum {
			return Config{}, fmt.Errorf("autoconfig: checksum mismatch, file may be truncated")
		}
	}
	return Deserialize(body)
}

func splitChecksum(raw []byte) (body []byte, sum uint64, hasSum bool, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	var bodyLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, crcLinePrefix) {
			hex := strings.TrimPrefix(line, crcLinePrefix)
			v, perr := strconv.ParseUint(strings.TrimSpace(hex), 16, 64)
			if perr != nil {
				return nil, 0, false, fmt.Errorf("autoconfig: malformed checksum line: %w", perr)
			}
			sum = v
			hasSum = true
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, false, err
	}
	return []byte(strings.Join(bodyLines, "\n")), sum, hasSum, nil
}
