package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

// --- ScyllaDB configuration ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// --- Global handles ---
var (
	Scylla  *ScyllaManager
	Redis   *redis.Client
	Elastic *elasticsearch.Client
)

// ConnectDatabases initializes every backing store. Fatal on failure:
// the server cannot serve without them.
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := InitScyllaDB(); err != nil {
		log.Fatalf("❌ ScyllaDB initialization failed: %v", err)
	}
	connectRedis(ctx)
	connectElastic()

	log.Println("✅ All databases connected")
}

// InitScyllaDB sets up the multi-keyspace session manager.
func InitScyllaDB() error {
	Scylla = &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  loadScyllaConfigs(),
	}

	for keyspace := range Scylla.configs {
		if _, err := Scylla.GetSession(keyspace); err != nil {
			return fmt.Errorf("keyspace %s initialization failed: %v", keyspace, err)
		}
	}

	// Tables are created via scripts/scylladb_init.cql; automatic
	// schema management is intentionally off.
	return nil
}

func loadScyllaConfigs() map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)

	hosts := strings.Split(os.Getenv("SCYLLA_HOSTS"), ",")
	timeout := 5 * time.Second
	numConns := 10
	consistency := gocql.Quorum

	for _, ks := range []struct {
		keyspaceVar, roleVar, passwordVar string
	}{
		{"SCYLLA_KS_PRODUCTS_KEYSPACE", "SCYLLA_KS_PRODUCTS_ROLE", "SCYLLA_KS_PRODUCTS_PASSWORD"},
		{"SCYLLA_KS_USERS_KEYSPACE", "SCYLLA_KS_USERS_ROLE", "SCYLLA_KS_USERS_PASSWORD"},
		{"SCYLLA_KS_ORDERS_KEYSPACE", "SCYLLA_KS_ORDERS_ROLE", "SCYLLA_KS_ORDERS_PASSWORD"},
	} {
		if keyspace := os.Getenv(ks.keyspaceVar); keyspace != "" {
			configs[keyspace] = ScyllaKeyspaceConfig{
				Hosts:       hosts,
				Keyspace:    keyspace,
				Username:    os.Getenv(ks.roleVar),
				Password:    os.Getenv(ks.passwordVar),
				Timeout:     timeout,
				NumConns:    numConns,
				Consistency: consistency,
			}
		}
	}

	return configs
}

func createScyllaCluster(config ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns
	cluster.ReconnectInterval = 1 * time.Second
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: config.Username,
		Password: config.Password,
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// GetSession returns the session for a keyspace, recreating it when
// the existing one no longer answers.
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' not configured", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if err := session.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return session, nil
		}
		session.Close()
	}

	session, err := createScyllaCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session creation for %s failed: %v", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Printf("✅ New ScyllaDB session for keyspace '%s' (role: %s)", keyspace, config.Username)
	return session, nil
}

// CloseScylla closes every open session.
func CloseScylla() {
	Scylla.mu.Lock()
	defer Scylla.mu.Unlock()

	for keyspace, session := range Scylla.sessions {
		session.Close()
		log.Printf("🔌 ScyllaDB session closed for keyspace '%s'", keyspace)
	}
}

// GetUsersSession returns the session for the users keyspace.
func GetUsersSession() (*gocql.Session, error) {
	keyspace := os.Getenv("SCYLLA_KS_USERS_KEYSPACE")
	if keyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KS_USERS_KEYSPACE not configured")
	}
	return Scylla.GetSession(keyspace)
}

// GetProductsSession returns the session for the products keyspace.
func GetProductsSession() (*gocql.Session, error) {
	keyspace := os.Getenv("SCYLLA_KS_PRODUCTS_KEYSPACE")
	if keyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KS_PRODUCTS_KEYSPACE not configured")
	}
	return Scylla.GetSession(keyspace)
}

// GetOrdersSession returns the session for the orders keyspace.
func GetOrdersSession() (*gocql.Session, error) {
	keyspace := os.Getenv("SCYLLA_KS_ORDERS_KEYSPACE")
	if keyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KS_ORDERS_KEYSPACE not configured")
	}
	return Scylla.GetSession(keyspace)
}

func connectRedis(ctx context.Context) {
	Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Redis connection failed:", err)
	}
	log.Println("✅ Connected to Redis")
}

func connectElastic() {
	cfg := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTIC_URL")},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal("❌ Elasticsearch client creation failed:", err)
	}

	res, err := client.Info()
	if err != nil {
		log.Fatal("❌ Elasticsearch connection failed:", err)
	}
	defer res.Body.Close()

	Elastic = client
	log.Println("✅ Connected to Elasticsearch")
}
