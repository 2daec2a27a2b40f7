package services

import (
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"gorm.io/gorm"
)

// LDAPService authenticates users against the directory configured through
// the ldap_* system config keys. Settings are read per call so admin changes
// apply without a restart.
type LDAPService struct {
	configSvc *SystemConfigService
}

func NewLDAPService(db *gorm.DB) *LDAPService {
	return &LDAPService{configSvc: NewSystemConfigService(db)}
}

type ldapSettings struct {
	Enabled      bool
	Host         string
	Port         int
	BaseDN       string
	BindDN       string
	BindPassword string
	UserFilter   string
	UseSSL       bool
}

func (s *LDAPService) settings() ldapSettings {
	port, _ := strconv.Atoi(s.configSvc.GetWithDefault("ldap_port", "389"))
	return ldapSettings{
		Enabled:      s.configSvc.GetBoolWithDefault("ldap_enabled", false),
		Host:         s.configSvc.GetWithDefault("ldap_host", ""),
		Port:         port,
		BaseDN:       s.configSvc.GetWithDefault("ldap_base_dn", ""),
		BindDN:       s.configSvc.GetWithDefault("ldap_bind_dn", ""),
		BindPassword: s.configSvc.GetWithDefault("ldap_bind_password", ""),
		UserFilter:   s.configSvc.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:       s.configSvc.GetBoolWithDefault("ldap_use_ssl", false),
	}
}

func (s *LDAPService) IsEnabled() bool {
	return s.settings().Enabled
}

// Authenticate authenticates a user against LDAP
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	cfg := s.settings()
	if !cfg.Enabled {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	// Connect to LDAP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var conn *ldap.Conn
	var err error

	if cfg.UseSSL {
		conn, err = ldap.DialTLS("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	} else {
		conn, err = ldap.Dial("tcp", addr)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	// Bind with service account (if configured)
	if cfg.BindDN != "" {
		err = conn.Bind(cfg.BindDN, cfg.BindPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	// Search for user
	searchFilter := fmt.Sprintf(cfg.UserFilter, ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		searchFilter,
		[]string{"dn", "cn", "mail", "uid", "sAMAccountName"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("user not found in LDAP")
	}

	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("multiple users found in LDAP")
	}

	userDN := result.Entries[0].DN

	// Bind as user to verify password
	err = conn.Bind(userDN, password)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	// Extract user info
	entry := result.Entries[0]
	user := &LDAPUser{
		DN:       userDN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue("mail"),
		Nickname: entry.GetAttributeValue("cn"),
	}

	// Try sAMAccountName if uid is empty (Active Directory)
	if user.Username == "" {
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}

	return user, nil
}

type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Nickname string
}
