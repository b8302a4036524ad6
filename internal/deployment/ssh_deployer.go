package deployment

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHDeployer uploads export files to a web host over SCP
type SSHDeployer struct {
	keyPath        string
	knownHostsPath string
	deployURL      string
	client         *ssh.Client
	connected      bool
}

// Option customizes an SSHDeployer
type Option func(*SSHDeployer)

// WithKeyPath sets the private key used for authentication
func WithKeyPath(keyPath string) Option {
	return func(d *SSHDeployer) { d.keyPath = keyPath }
}

// WithKnownHosts verifies the server key against a known_hosts file
func WithKnownHosts(knownHostsPath string) Option {
	return func(d *SSHDeployer) { d.knownHostsPath = knownHostsPath }
}

// NewSSHDeployer creates a deployer for a target of the form user@host[:port]:path
func NewSSHDeployer(deployURL string, opts ...Option) *SSHDeployer {
	d := &SSHDeployer{
		keyPath:   "deploy.pem",
		deployURL: deployURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type deployTarget struct {
	user       string
	host       string
	port       string
	remotePath string
}

// parseDeployURL parses user@host:path or user@host:port:path
func parseDeployURL(deployURL string) (deployTarget, error) {
	if deployURL == "" {
		return deployTarget{}, fmt.Errorf("deploy URL is empty")
	}

	user, hostPath, ok := strings.Cut(deployURL, "@")
	if !ok || user == "" {
		return deployTarget{}, fmt.Errorf("invalid deploy URL format: expected user@host:path")
	}

	parts := strings.SplitN(hostPath, ":", 3)
	target := deployTarget{user: user, port: "22"}
	switch len(parts) {
	case 2:
		target.host, target.remotePath = parts[0], parts[1]
	case 3:
		target.host, target.port, target.remotePath = parts[0], parts[1], parts[2]
	default:
		return deployTarget{}, fmt.Errorf("invalid deploy URL format: expected user@host:path")
	}

	if target.host == "" || target.remotePath == "" {
		return deployTarget{}, fmt.Errorf("invalid deploy URL format: expected user@host:path")
	}
	return target, nil
}

func (d *SSHDeployer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.knownHostsPath == "" {
		log.Warn().Msg("No known_hosts file configured; SSH host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(d.knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts %s: %w", d.knownHostsPath, err)
	}
	return callback, nil
}

// Connect establishes SSH connection
func (d *SSHDeployer) Connect() error {
	if d.connected {
		return nil
	}

	target, err := parseDeployURL(d.deployURL)
	if err != nil {
		return fmt.Errorf("failed to parse deploy URL: %w", err)
	}

	keyData, err := os.ReadFile(d.keyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key file %s: %w", d.keyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse SSH private key: %w", err)
	}

	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            target.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	d.client, err = ssh.Dial("tcp", net.JoinHostPort(target.host, target.port), config)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH server %s: %w", target.host, err)
	}

	d.connected = true
	log.Info().
		Str("host", target.host).
		Str("user", target.user).
		Msg("Successfully connected to SSH server")

	return nil
}

// Disconnect closes SSH connection
func (d *SSHDeployer) Disconnect() error {
	if d.client != nil {
		err := d.client.Close()
		d.connected = false
		d.client = nil
		return err
	}
	return nil
}

// DeployFile uploads localPath to the remote directory as filename.
// A failed upload drops the connection so the next call reconnects.
func (d *SSHDeployer) DeployFile(localPath, filename string) error {
	if err := d.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	target, err := parseDeployURL(d.deployURL)
	if err != nil {
		return fmt.Errorf("failed to parse deploy URL: %w", err)
	}

	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	fileInfo, err := localFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat local file: %w", err)
	}

	remoteFilePath := path.Join(target.remotePath, filename)
	if err := d.scp(remoteFilePath, filename, fileInfo.Size(), localFile); err != nil {
		_ = d.Disconnect()
		return err
	}

	log.Info().
		Str("local_path", localPath).
		Str("remote_path", remoteFilePath).
		Int64("size", fileInfo.Size()).
		Msg("Successfully deployed file via SCP")

	return nil
}

func (d *SSHDeployer) scp(remoteFilePath, filename string, size int64, content io.Reader) error {
	session, err := d.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	if err := session.Start(fmt.Sprintf("scp -t %s", remoteFilePath)); err != nil {
		return fmt.Errorf("failed to start SCP session: %w", err)
	}

	if err := writeSCP(stdin, filename, size, content); err != nil {
		return err
	}

	stdin.Close()
	if err := session.Wait(); err != nil {
		return fmt.Errorf("SCP session failed: %w", err)
	}
	return nil
}

// writeSCP writes a single-file SCP sink stream: header, content, end marker
func writeSCP(w io.Writer, filename string, size int64, content io.Reader) error {
	if _, err := fmt.Fprintf(w, "C0644 %d %s\n", size, filename); err != nil {
		return fmt.Errorf("failed to write SCP header: %w", err)
	}
	if _, err := io.Copy(w, content); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return fmt.Errorf("failed to write SCP end marker: %w", err)
	}
	return nil
}
