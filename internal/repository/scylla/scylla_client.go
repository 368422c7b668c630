package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/config"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// Statements holds the CQL used by the repositories. Lookup tables are
// claimed with LWT inserts so uniqueness is enforced by the store, not by
// the preceding existence check.
type Statements struct {
	InsertStudent         string
	ClaimStudentEmail     string
	ClaimStudentMatric    string
	ReleaseStudentEmail   string
	SelectStudent         string
	SelectStudentByEmail  string
	SelectStudentByMatric string
	MarkStudentVerified   string
	RotateStudentOTP      string

	InsertDriver        string
	ClaimDriverEmail    string
	SelectDriver        string
	SelectDriverByEmail string
}

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
	Stmts   *Statements
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
		Stmts:   buildStatements(),
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func buildStatements() *Statements {
	return &Statements{
		InsertStudent: `
			INSERT INTO students (
				bucket, student_id, full_name, matric_no, email,
				phone_encrypted, phone_key_id, password_hash,
				is_verified, email_otp, otp_expires_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ClaimStudentEmail: `
			INSERT INTO students_by_email (email, bucket, student_id)
			VALUES (?, ?, ?) IF NOT EXISTS`,
		ClaimStudentMatric: `
			INSERT INTO students_by_matric (matric_no, bucket, student_id)
			VALUES (?, ?, ?) IF NOT EXISTS`,
		ReleaseStudentEmail: `
			DELETE FROM students_by_email WHERE email = ?`,
		SelectStudent: `
			SELECT bucket, student_id, full_name, matric_no, email,
				phone_encrypted, phone_key_id, password_hash,
				is_verified, email_otp, otp_expires_at, created_at, updated_at
			FROM students WHERE bucket = ? AND student_id = ?`,
		SelectStudentByEmail: `
			SELECT bucket, student_id FROM students_by_email WHERE email = ?`,
		SelectStudentByMatric: `
			SELECT bucket, student_id FROM students_by_matric WHERE matric_no = ?`,
		MarkStudentVerified: `
			UPDATE students
			SET is_verified = true, email_otp = null, otp_expires_at = null, updated_at = ?
			WHERE bucket = ? AND student_id = ?
			IF email_otp = ? AND is_verified = false`,
		RotateStudentOTP: `
			UPDATE students
			SET email_otp = ?, otp_expires_at = ?, updated_at = ?
			WHERE bucket = ? AND student_id = ?
			IF email_otp = ?`,

		InsertDriver: `
			INSERT INTO drivers (
				bucket, driver_id, full_name, email,
				phone_encrypted, phone_key_id, password_hash, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ClaimDriverEmail: `
			INSERT INTO drivers_by_email (email, bucket, driver_id)
			VALUES (?, ?, ?) IF NOT EXISTS`,
		SelectDriver: `
			SELECT bucket, driver_id, full_name, email,
				phone_encrypted, phone_key_id, password_hash, created_at, updated_at
			FROM drivers WHERE bucket = ? AND driver_id = ?`,
		SelectDriverByEmail: `
			SELECT bucket, driver_id FROM drivers_by_email WHERE email = ?`,
	}
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}
