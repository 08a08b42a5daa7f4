//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_ROOT_PASSWORD": "test",
			"MARIADB_DATABASE":      "attendance",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("root:test@tcp(%s:%s)/attendance?parseTime=true", host, port.Port())

	// The port opens before the server accepts logins.
	var pool *Pool
	for range 30 {
		pool, err = NewPool(dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect: %v", err)
	}

	schema := []string{
		`CREATE TABLE student (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			roll VARCHAR(64) NOT NULL,
			subject_id BIGINT NOT NULL
		)`,
		`INSERT INTO student (name, roll, subject_id) VALUES
			('Asha Rao', 'CS-01', 1),
			('Ben Okafor', 'CS-02', 1),
			('Chen Wei', 'CS-01', 2)`,
	}
	for _, stmt := range schema {
		if _, err := pool.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to prepare schema: %v", err)
		}
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestRosterRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRosterRepository(pool)

	tests := []struct {
		name      string
		subjectID int64
		roll      string
		wantName  string
	}{
		{"exact", 1, "CS-01", "Asha Rao"},
		{"lowercase", 1, "cs-02", "Ben Okafor"},
		{"other subject", 2, "cs-01", "Chen Wei"},
		{"missing", 1, "CS-99", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByRoll(ctx, tt.subjectID, tt.roll)
			if err != nil {
				t.Fatalf("FindByRoll() error = %v", err)
			}
			if tt.wantName == "" {
				if got != nil {
					t.Errorf("FindByRoll() = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Name != tt.wantName {
				t.Errorf("FindByRoll() = %+v, want %s", got, tt.wantName)
			}
		})
	}

	list, err := repo.ListBySubject(ctx, 1)
	if err != nil {
		t.Fatalf("ListBySubject() error = %v", err)
	}
	if len(list) != 2 || list[0].Roll != "CS-01" {
		t.Errorf("ListBySubject() = %+v", list)
	}
}
