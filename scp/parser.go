package scp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

// lsRE tokenizes one row of `ls -l` output into type char, permission
// string, link count, owner, group, size, mtime and name.
// See <https://stackoverflow.com/questions/32480890> for the lineage of
// this expression.
var lsRE = regexp.MustCompile(`^([\-ld])([\-rwxs]{9})\s+(\d+)\s+(.+)\s+(.+)\s+(\d+)\s+(\w{3}\s+\d{1,2}\s+(?:\d{1,2}:\d{1,2}|\d{4}))\s+(.+)$`)

// parseLsLine converts one `ls -l` row into an entry rooted at dir.
// Header lines ("total N"), special files (devices, sockets), dot
// entries and malformed rows yield ok=false; a listing is best-effort
// and never aborts on a single bad row.
func parseLsLine(dir, line string) (remotefs.Entry, bool) {
	groups := lsRE.FindStringSubmatch(line)
	if groups == nil {
		return remotefs.Entry{}, false
	}
	var fileType remotefs.FileType
	switch groups[1] {
	case "-":
		fileType = remotefs.TypeFile
	case "l":
		fileType = remotefs.TypeSymlink
	case "d":
		fileType = remotefs.TypeDirectory
	default:
		return remotefs.Entry{}, false
	}
	perms := groups[2]
	if len(perms) != 9 {
		return remotefs.Entry{}, false
	}
	mode := remotefs.NewUnixPex(
		pexClass(perms[0:3]),
		pexClass(perms[3:6]),
		pexClass(perms[6:9]),
	)

	mtime, err := parseLsTime(groups[7])
	if err != nil {
		mtime = time.Unix(0, 0).UTC()
	}

	var uid, gid *uint32
	if v, err := strconv.ParseUint(groups[4], 10, 32); err == nil {
		u := uint32(v)
		uid = &u
	}
	if v, err := strconv.ParseUint(groups[5], 10, 32); err == nil {
		g := uint32(v)
		gid = &g
	}
	size, _ := strconv.ParseUint(groups[6], 10, 64)

	name := groups[8]
	var symlink string
	if fileType == remotefs.TypeSymlink {
		name, symlink = splitNameAndLink(name)
	}
	// Servers may echo a full path instead of a bare name.
	name = pathutil.Name(name)
	if name == "." || name == ".." {
		return remotefs.Entry{}, false
	}

	md := remotefs.Metadata{
		Accessed: time.Unix(0, 0).UTC(),
		Created:  time.Unix(0, 0).UTC(),
		Modified: mtime,
		Size:     size,
		UID:      uid,
		GID:      gid,
		Mode:     &mode,
		Symlink:  symlink,
		Type:     fileType,
	}
	return remotefs.NewEntry(pathutil.Resolve(dir, name), md), true
}

// pexClass maps a 3-char permission group to its bits. Any character
// other than '-' grants the bit at its position, so "rws" counts the
// same as "rwx"; setuid, setgid and sticky are not distinguished.
func pexClass(s string) remotefs.UnixPexClass {
	var octet uint8
	for i, c := range s {
		if c == '-' {
			continue
		}
		switch i {
		case 0:
			octet |= 0o4
		case 1:
			octet |= 0o2
		case 2:
			octet |= 0o1
		}
	}
	return remotefs.NewUnixPexClass(octet)
}

// splitNameAndLink splits an `ls -l` name token on " -> ", returning the
// file name and the symlink target (empty when absent).
func splitNameAndLink(token string) (string, string) {
	parts := strings.SplitN(token, " -> ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return token, ""
}

// parseLsTime parses the mtime column of `ls -l`, which is either
// "Nov 5 2019" for old files or "Nov 5 13:46" (current year) for
// recent ones.
func parseLsTime(s string) (time.Time, error) {
	normalized := strings.Join(strings.Fields(s), " ")
	if t, err := time.ParseInLocation("Jan 2 2006", normalized, time.UTC); err == nil {
		return t, nil
	}
	withYear := normalized + " " + strconv.Itoa(time.Now().UTC().Year())
	t, err := time.ParseInLocation("Jan 2 15:04 2006", withYear, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
