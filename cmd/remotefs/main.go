// Command remotefs is a small cross-protocol file transfer tool built on
// the remotefs library. It connects to an SFTP, SCP, FTP/FTPS or S3
// endpoint and runs one operation: ls, stat, get, put, rm, mkdir, mv or
// find.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/fmte"
	"github.com/m-manu/remotefs/ftp"
	"github.com/m-manu/remotefs/s3"
	"github.com/m-manu/remotefs/scp"
	"github.com/m-manu/remotefs/sftp"
	"github.com/m-manu/remotefs/sshconn"
)

// Constants indicating return codes of this tool, when run from command line
const (
	exitCodeSuccess = iota
	exitCodeInvalidArgs
	exitCodeConnectError
	exitCodeOperationError
)

var flags struct {
	protocol    *string
	host        *string
	port        *int
	user        *string
	askPassword *bool
	keyFile     *string
	sshConfig   *string
	bucket      *string
	region      *string
	profile     *string
	endpoint    *string
	accessKey   *string
	secretKey   *string
	insecure    *bool
	verbose     *bool
}

func setupFlags() {
	flags.protocol = pflag.StringP("protocol", "P", "sftp", "protocol: sftp, scp, ftp, ftps or s3")
	flags.host = pflag.StringP("host", "H", "", "remote host (or ssh config alias)")
	flags.port = pflag.IntP("port", "p", 0, "remote port (defaults per protocol)")
	flags.user = pflag.StringP("user", "u", "", "login user")
	flags.askPassword = pflag.Bool("ask-password", false, "prompt for a login password")
	flags.keyFile = pflag.StringP("key", "k", "", "ssh private key file")
	flags.sshConfig = pflag.String("ssh-config", "", "ssh config file to resolve host parameters from")
	flags.bucket = pflag.StringP("bucket", "b", "", "s3 bucket name")
	flags.region = pflag.String("region", "", "s3 region")
	flags.profile = pflag.String("profile", "", "aws shared-config profile")
	flags.endpoint = pflag.String("endpoint", "", "s3-compatible endpoint override")
	flags.accessKey = pflag.String("access-key", "", "s3 access key (with --secret-key)")
	flags.secretKey = pflag.String("secret-key", "", "s3 secret key")
	flags.insecure = pflag.Bool("insecure", false, "skip FTPS certificate verification")
	flags.verbose = pflag.BoolP("verbose", "v", false, "verbose output")
	pflag.Usage = func() {
		fmte.PrintfErr("usage: remotefs [flags] <ls|stat|get|put|rm|mkdir|mv|find> [args]\n")
		pflag.PrintDefaults()
	}
}

func handlePanic() {
	err := recover()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Program exited unexpectedly. "+
			"Please report the below error to the author:\n%+v\n", err)
		_, _ = fmt.Fprintln(os.Stderr, string(debug.Stack()))
		os.Exit(exitCodeOperationError)
	}
}

func main() {
	defer handlePanic()
	setupFlags()
	pflag.Parse()
	if *flags.verbose {
		fmte.VerboseOn()
		logrus.SetLevel(logrus.DebugLevel)
	}
	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(exitCodeInvalidArgs)
	}

	fs, err := buildFS()
	if err != nil {
		fmte.PrintfErr("error: %v\n", err)
		os.Exit(exitCodeInvalidArgs)
	}
	welcome, err := fs.Connect()
	if err != nil {
		fmte.PrintfErr("connect failed: %v\n", err)
		os.Exit(exitCodeConnectError)
	}
	if welcome.Banner != "" {
		fmte.PrintfV("%s\n", welcome.Banner)
	}
	defer func() { _ = fs.Disconnect() }()

	if err := runCommand(fs, args[0], args[1:]); err != nil {
		fmte.PrintfErr("%s failed: %v\n", args[0], err)
		os.Exit(exitCodeOperationError)
	}
}

func buildFS() (remotefs.FileSystem, error) {
	protocol := strings.ToLower(*flags.protocol)
	switch protocol {
	case "sftp", "scp":
		if *flags.host == "" {
			return nil, fmt.Errorf("--host is required for %s", protocol)
		}
		opts := sshconn.NewOpts(*flags.host).
			WithPort(*flags.port).
			WithUser(*flags.user)
		if *flags.keyFile != "" {
			opts.WithKeyFile(*flags.keyFile, "")
		}
		if *flags.sshConfig != "" {
			opts.WithConfigFile(*flags.sshConfig)
		}
		if *flags.askPassword {
			opts.WithPassword(promptPassword())
		}
		if protocol == "scp" {
			return scp.NewFS(opts), nil
		}
		return sftp.NewFS(opts), nil
	case "ftp", "ftps":
		if *flags.host == "" {
			return nil, fmt.Errorf("--host is required for %s", protocol)
		}
		password := ""
		if *flags.askPassword {
			password = promptPassword()
		}
		opts := ftp.NewOpts(*flags.host).
			WithPort(*flags.port).
			WithCredentials(*flags.user, password)
		if protocol == "ftps" {
			opts.WithSecure(*flags.insecure)
		}
		return ftp.NewFS(opts), nil
	case "s3":
		if *flags.bucket == "" {
			return nil, fmt.Errorf("--bucket is required for s3")
		}
		opts := s3.NewOpts(*flags.bucket, *flags.region)
		if *flags.profile != "" {
			opts.WithProfile(*flags.profile)
		}
		if *flags.endpoint != "" {
			opts.WithEndpoint(*flags.endpoint)
		}
		if *flags.accessKey != "" {
			opts.WithStaticCredentials(*flags.accessKey, *flags.secretKey, "")
		}
		return s3.NewFS(opts), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", protocol)
	}
}

func promptPassword() string {
	fmte.PrintfErr("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmte.PrintfErr("\n")
	if err != nil {
		return ""
	}
	return string(password)
}

func runCommand(fs remotefs.FileSystem, command string, args []string) error {
	switch command {
	case "ls":
		dir := "/"
		if len(args) > 0 {
			dir = args[0]
		}
		entries, err := fs.ListDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			printEntry(entry)
		}
		return nil
	case "stat":
		if len(args) != 1 {
			return fmt.Errorf("usage: stat <path>")
		}
		entry, err := fs.Stat(args[0])
		if err != nil {
			return err
		}
		printEntry(entry)
		return nil
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <remote> <local>")
		}
		local, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer local.Close()
		n, err := fs.OpenFile(args[0], local)
		if err != nil {
			return err
		}
		fmte.PrintfV("transferred %d bytes\n", n)
		return nil
	case "put":
		if len(args) != 2 {
			return fmt.Errorf("usage: put <local> <remote>")
		}
		local, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer local.Close()
		info, err := local.Stat()
		if err != nil {
			return err
		}
		mode := remotefs.UnixPexFromMode(uint32(info.Mode().Perm()))
		metadata := remotefs.Metadata{
			Modified: info.ModTime(),
			Size:     uint64(info.Size()),
			Mode:     &mode,
		}
		n, err := fs.CreateFile(args[1], metadata, local)
		if err != nil {
			return err
		}
		fmte.PrintfV("transferred %d bytes\n", n)
		return nil
	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: rm <path>")
		}
		return fs.RemoveDirAll(args[0])
	case "mkdir":
		if len(args) != 1 {
			return fmt.Errorf("usage: mkdir <path>")
		}
		return fs.CreateDir(args[0], remotefs.UnixPexFromMode(0o755))
	case "mv":
		if len(args) != 2 {
			return fmt.Errorf("usage: mv <src> <dest>")
		}
		return fs.Move(args[0], args[1])
	case "find":
		if len(args) != 1 {
			return fmt.Errorf("usage: find <pattern>")
		}
		entries, err := fs.Find(args[0])
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fmte.Printf("%s\n", entry.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printEntry(entry remotefs.Entry) {
	kind := "-"
	switch entry.Metadata.Type {
	case remotefs.TypeDirectory:
		kind = "d"
	case remotefs.TypeSymlink:
		kind = "l"
	}
	mode := "???"
	if entry.Metadata.Mode != nil {
		mode = fmt.Sprintf("%03o", entry.Metadata.Mode.Mode())
	}
	modified := ""
	if !entry.Metadata.Modified.IsZero() {
		modified = entry.Metadata.Modified.UTC().Format(time.RFC3339)
	}
	name := entry.Name
	if entry.IsSymlink() && entry.Metadata.Symlink != "" {
		name += " -> " + entry.Metadata.Symlink
	}
	fmte.Printf("%s%s %12d %s %s\n", kind, mode, entry.Metadata.Size, modified, name)
}
