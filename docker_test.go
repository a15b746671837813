package parcelman_test

import (
	"os"
	"strings"
	"testing"
)

func TestDockerfileExists(t *testing.T) {
	_, err := os.Stat("Dockerfile")
	if err != nil {
		t.Fatalf("Dockerfile should exist: %v", err)
	}
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	content := string(data)

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	lines := strings.Split(content, "\n")
	var lastFrom string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBuildsParcelmanEntrypoint(t *testing.T) {
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	content := string(data)

	// cmd/parcelmanをビルドし、そのバイナリをENTRYPOINTにすること
	if !strings.Contains(content, "./cmd/parcelman") {
		t.Error("Dockerfile should build ./cmd/parcelman")
	}
	if !strings.Contains(content, `ENTRYPOINT ["/parcelman"]`) {
		t.Error("Dockerfile should use the parcelman binary as ENTRYPOINT")
	}
}

func TestDockerfileDefaultsToServe(t *testing.T) {
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	content := string(data)

	// デフォルトのサブコマンドはserveであること（mcpモードは明示指定で起動）
	if !strings.Contains(content, `CMD ["serve"]`) {
		t.Error("Dockerfile should default to the serve subcommand")
	}
}

func TestDockerfileHealthcheckSubcommand(t *testing.T) {
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	content := string(data)

	// distrolessにはシェルもcurlも無いため、HEALTHCHECKは
	// バイナリ自身のhealthcheckサブコマンドをexec形式で実行すること
	if !strings.Contains(content, "HEALTHCHECK") {
		t.Fatal("Dockerfile should declare a HEALTHCHECK")
	}
	if !strings.Contains(content, `CMD ["/parcelman", "healthcheck"]`) {
		t.Error("HEALTHCHECK should exec the healthcheck subcommand of the parcelman binary")
	}
}

func TestDockerComposeExists(t *testing.T) {
	_, err := os.Stat("docker-compose.yml")
	if err != nil {
		t.Fatalf("docker-compose.yml should exist: %v", err)
	}
}

func TestDockerComposeAPIService(t *testing.T) {
	data, err := os.ReadFile("docker-compose.yml")
	if err != nil {
		t.Fatalf("failed to read docker-compose.yml: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "api:") {
		t.Error("docker-compose.yml should contain service \"api:\"")
	}
}

func TestDockerComposeCredentialsFromEnv(t *testing.T) {
	data, err := os.ReadFile("docker-compose.yml")
	if err != nil {
		t.Fatalf("failed to read docker-compose.yml: %v", err)
	}
	content := string(data)

	// 認証情報はイメージに焼き込まず環境変数で渡すこと
	for _, key := range []string{"DHL_USERNAME", "DHL_PASSWORD"} {
		if !strings.Contains(content, key) {
			t.Errorf("docker-compose.yml should pass %s via environment", key)
		}
	}
}
