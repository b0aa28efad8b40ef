package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginScript = `echo '{"status":"need_phone"}'
read phone
printf '%s' "$phone" > phone.txt
echo '{"status":"need_otp"}'
read code
printf '%s' "$code" > code.txt
: > user_session.session
echo '{"status":"success","message":"Welcome aboard"}'
`

const uploadScript = `printf '%s\n' "$@" > args.txt
echo 'not json'
echo '{"type":"info","message":"Found 1 videos"}'
echo '{"type":"progress","message":"Uploading: a.mp4","progress":42}'
echo '{"type":"success","message":"All uploads finished"}'
`

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestProtocolSchemaPrintsJSONSchema(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	stdout, _, err := executeCLI(t, home, "protocol", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"status"`)
	assert.Contains(t, stdout, `"progress"`)
}

func TestRemovedCommandIsUnknown(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	_, _, err := executeCLI(t, home, "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func TestStatusReportsLoggedOut(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "session: logged out")
	assert.Contains(t, stdout, "credit: "+domain.DefaultCredit)
}

func TestStatusJSONReportsMarker(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	marker := filepath.Join(root, "user_session.session")
	require.NoError(t, os.WriteFile(marker, nil, 0o600))

	stdout, _, err := executeCLI(t, home, "status", "--json")
	require.NoError(t, err)

	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.True(t, status.LoggedIn)
	assert.Equal(t, marker, status.SessionPath)
	assert.Equal(t, root, status.InstallRoot)
}

func TestLogoutRemovesMarker(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	marker := filepath.Join(root, "user_session.session")
	require.NoError(t, os.WriteFile(marker, nil, 0o600))

	stdout, _, err := executeCLI(t, home, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out.")
	assert.NoFileExists(t, marker)

	_, _, err = executeCLI(t, home, "logout")
	require.NoError(t, err)
}

func TestLoginRequiresCredentials(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	_, _, err := executeCLI(t, home, "login", "--api-id", "123")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
	assert.Contains(t, err.Error(), "--api-hash")
}

func TestLoginWalksPhoneAndCodeSteps(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	writeScript(t, root, "login.sh", loginScript)

	stdout, _, err := executeCLIWithInput(t, home, "+15550100\n12345\n", "login", "--api-id", "123", "--api-hash", "abc")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Connecting...")
	assert.Contains(t, stdout, "Phone number (with country code): ")
	assert.Contains(t, stdout, "OTP Sent!")
	assert.Contains(t, stdout, "Login code: ")
	assert.Contains(t, stdout, "Welcome aboard")
	assert.Contains(t, stdout, "Logged in.")

	assert.FileExists(t, filepath.Join(root, "user_session.session"))
	assertFileContent(t, filepath.Join(root, "phone.txt"), "+15550100")
	assertFileContent(t, filepath.Join(root, "code.txt"), "12345")
}

func TestLoginReportsChildError(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	writeScript(t, root, "login.sh", `echo '{"status":"error","message":"PHONE_NUMBER_INVALID"}'`+"\n")

	_, _, err := executeCLI(t, home, "login", "--api-id", "123", "--api-hash", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed: PHONE_NUMBER_INVALID")
}

func TestLoginReportsScriptStderr(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	writeScript(t, root, "login.sh", "echo 'Traceback (most recent call last):' >&2\nread wait\n")

	_, _, err := executeCLI(t, home, "login", "--api-id", "123", "--api-hash", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Script Error (Check Output)")
}

func TestUploadRequiresSession(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	_, _, err := executeCLI(t, home, "upload", t.TempDir(), "--api-id", "123", "--api-hash", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestUploadRejectsMissingFolder(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)

	_, _, err := executeCLI(t, home, "upload", filepath.Join(home, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open folder")
}

func TestUploadRelaysProgressAndRemembersProfile(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	require.NoError(t, os.WriteFile(filepath.Join(root, "user_session.session"), nil, 0o600))
	writeScript(t, root, "upload.sh", uploadScript)
	folder := t.TempDir()

	stdout, _, err := executeCLI(t, home, "upload", folder,
		"--api-id", "123",
		"--api-hash", "abc",
		"--chat", "localyORG",
		"--credit", "by me",
		"--plain",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 1 videos")
	assert.Contains(t, stdout, "Uploading: a.mp4 (42%)")
	assert.Contains(t, stdout, "All uploads finished")
	assert.NotContains(t, stdout, "not json")

	args, err := os.ReadFile(filepath.Join(root, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{folder, "123", "abc", "localyORG", "by me"}, strings.Split(strings.TrimSpace(string(args)), "\n"))

	stdout, _, err = executeCLI(t, home, "status", "--json")
	require.NoError(t, err)
	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, domain.UploadProfile{ChatID: "localyORG", Credit: "by me"}, status.Profile)
}

func TestUploadContinuesAfterFailedFile(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	require.NoError(t, os.WriteFile(filepath.Join(root, "user_session.session"), nil, 0o600))
	writeScript(t, root, "upload.sh", `echo '{"type":"progress","message":"Uploading: a.mp4","progress":50}'
echo '{"type":"error","message":"Fail: a.mp4","progress":0}'
sleep 0.3
: > finished.txt
echo '{"type":"info","message":"Processing: module 2","progress":0}'
echo '{"type":"success","message":"All uploads finished","progress":0}'
`)

	stdout, _, err := executeCLI(t, home, "upload", t.TempDir(), "--plain")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "finished.txt"))
	assert.Contains(t, stdout, "Uploading: a.mp4 (50%)\n")
	assert.Contains(t, stdout, "Fail: a.mp4\n")
	assert.Contains(t, stdout, "Processing: module 2\n")
	assert.Contains(t, stdout, "All uploads finished")
	assert.NotContains(t, stdout, "(0%)")
}

func TestUploadReportsChildError(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	require.NoError(t, os.WriteFile(filepath.Join(root, "user_session.session"), nil, 0o600))
	writeScript(t, root, "upload.sh", `echo '{"type":"error","message":"Chat not found"}'`+"\n")

	_, _, err := executeCLI(t, home, "upload", t.TempDir(), "--chat", "nowhere", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed: Chat not found")
}

func TestUploadReportsSilentCrash(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	require.NoError(t, os.WriteFile(filepath.Join(root, "user_session.session"), nil, 0o600))
	writeScript(t, root, "upload.sh", "exit 3\n")

	_, _, err := executeCLI(t, home, "upload", t.TempDir(), "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Process exited with code 3")
}

func TestBridgeSpeaksJSONLines(t *testing.T) {
	home := t.TempDir()
	setupInstall(t, home)
	folder := t.TempDir()

	input := strings.Join([]string{
		`{"cmd":"refresh"}`,
		`{"cmd":"selectFolder","path":"` + folder + `"}`,
		`not json`,
		`{"cmd":"startLogin","apiId":"123"}`,
		`{"cmd":"teleport"}`,
	}, "\n") + "\n"

	stdout, _, err := executeCLIWithInput(t, home, input, "bridge")
	require.NoError(t, err)

	var kinds []string
	var notices []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var msg struct {
			Cmd  string          `json:"cmd"`
			Path string          `json:"path"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &msg))
		kinds = append(kinds, msg.Cmd)

		switch msg.Cmd {
		case "setPath":
			assert.Equal(t, folder, msg.Path)
		case "view":
			assert.JSONEq(t, `{"loggedIn":false}`, string(msg.Data))
		case "notice":
			var notice domain.Notice
			require.NoError(t, json.Unmarshal(msg.Data, &notice))
			assert.Equal(t, domain.NoticeError, notice.Level)
			notices = append(notices, notice.Message)
		}
	}

	assert.Equal(t, []string{"view", "setPath", "notice", "notice"}, kinds)
	require.Len(t, notices, 2)
	assert.Equal(t, "Enter API ID & Hash", notices[0])
	assert.Contains(t, notices[1], "teleport")
}

func TestBridgeKeepsLoginViewWhileLoginCreatesMarker(t *testing.T) {
	home := t.TempDir()
	root := setupInstall(t, home)
	writeScript(t, root, "login.sh", `: > user_session.session
sleep 0.2
echo '{"status":"need_phone"}'
read phone
echo '{"status":"error","message":"PHONE_NUMBER_INVALID"}'
`)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	rootCmd := newRootCmd()
	rootCmd.SetIn(inR)
	rootCmd.SetOut(outW)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"bridge"})

	done := make(chan error, 1)
	go func() {
		err := rootCmd.Execute()
		_ = outW.Close()
		done <- err
	}()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var seen []string
	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "bridge output ended before %q", substr)
				seen = append(seen, line)
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q, saw %v", substr, seen)
			}
		}
	}

	_, err := io.WriteString(inW, `{"cmd":"startLogin","apiId":"123","apiHash":"abc"}`+"\n")
	require.NoError(t, err)
	waitFor(`"awaiting_phone"`)

	_, err = io.WriteString(inW, `{"cmd":"sendInput","value":"+15550100"}`+"\n")
	require.NoError(t, err)
	waitFor(`"failed"`)

	require.NoError(t, inW.Close())
	for line := range lines {
		seen = append(seen, line)
	}
	require.NoError(t, <-done)

	assert.FileExists(t, filepath.Join(root, "user_session.session"))
	for _, line := range seen {
		var msg struct {
			Cmd  string      `json:"cmd"`
			Data domain.View `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		if msg.Cmd == "view" {
			assert.False(t, msg.Data.LoggedIn, "unexpected logged-in view: %s", line)
		}
	}
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// setupInstall points localy at a temporary install root with shell children.
func setupInstall(t *testing.T, home string) string {
	t.Helper()

	root := filepath.Join(home, "install")
	require.NoError(t, os.MkdirAll(root, 0o755))

	t.Setenv("LOCALY_INSTALL_ROOT", root)
	t.Setenv("LOCALY_INTERPRETER", "sh")
	t.Setenv("LOCALY_LOGIN_SCRIPT", "login.sh")
	t.Setenv("LOCALY_UPLOAD_SCRIPT", "upload.sh")
	t.Setenv("LOCALY_SETTLE_DELAY", "10ms")
	t.Setenv("LOCALY_TERMINATE_GRACE", "500ms")
	t.Setenv("LOCALY_LOG_LEVEL", "disabled")
	t.Setenv("LOCALY_API_ID", "")
	t.Setenv("LOCALY_API_HASH", "")

	return root
}

func writeScript(t *testing.T, root, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o755))
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}
