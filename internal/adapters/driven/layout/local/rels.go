package local

import (
	"archive/zip"
	"encoding/xml"
	"path"
	"strings"
)

type relationships struct {
	Items []struct {
		ID         string `xml:"Id,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// loadRels maps relationship ids of a part to zip entry names. base is the
// directory of the part the relationships belong to ("word", "ppt/slides").
func loadRels(reader *zip.Reader, relsName, base string) (map[string]string, error) {
	content, err := readPart(reader, relsName)
	if err != nil || content == nil {
		return map[string]string{}, err
	}

	var rels relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Clean(path.Join(base, target))
		}
		out[r.ID] = target
	}
	return out, nil
}
