package oidc

import (
	"strings"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// ClaimSources claims, полученные от провайдера: ответ userinfo и
// проверенный id_token. UserInfo может быть nil.
type ClaimSources struct {
	UserInfo map[string]any
	IDToken  map[string]any
}

// GroupStrategy извлекает группы из одного места в claims.
type GroupStrategy struct {
	Name    string
	Extract func(ClaimSources) []string
}

// DefaultGroupStrategies порядок, в котором ищутся группы. Побеждает первый
// непустой источник.
var DefaultGroupStrategies = []GroupStrategy{
	{Name: "userinfo.groups", Extract: fromClaim(userInfo, "groups")},
	{Name: "id_token.groups", Extract: fromClaim(idToken, "groups")},
	{Name: "id_token.roles", Extract: fromClaim(idToken, "roles")},
	{Name: "id_token.realm_access.roles", Extract: fromClaim(idToken, "realm_access", "roles")},
	{Name: "id_token.cognito:groups", Extract: fromClaim(idToken, "cognito:groups")},
}

func userInfo(s ClaimSources) map[string]any { return s.UserInfo }
func idToken(s ClaimSources) map[string]any  { return s.IDToken }

func fromClaim(src func(ClaimSources) map[string]any, path ...string) func(ClaimSources) []string {
	return func(s ClaimSources) []string {
		var v any = src(s)
		for _, key := range path {
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[key]
		}
		return stringList(v)
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' })
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ResolveGroups перебирает strategies и возвращает нормализованные группы
// первого непустого источника вместе с его именем.
func ResolveGroups(s ClaimSources, strategies []GroupStrategy) ([]string, string) {
	for _, st := range strategies {
		groups := normalize(st.Extract(s))
		if len(groups) > 0 {
			return groups, st.Name
		}
	}
	return nil, ""
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		// keycloak отдаёт группы как пути: /admin
		v = strings.TrimPrefix(v, "/")
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Identity проверенные данные пользователя из claims.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Groups        []string
	GroupSource   string
}

// ResolveIdentity собирает Identity. email ищется сначала в id_token, затем
// в userinfo. Отсутствующий email_verified считается подтверждённым.
func ResolveIdentity(s ClaimSources, strategies []GroupStrategy) Identity {
	id := Identity{EmailVerified: true}
	for _, m := range []map[string]any{s.IDToken, s.UserInfo} {
		if id.Subject == "" {
			id.Subject, _ = m["sub"].(string)
		}
		if id.Email == "" {
			if email, _ := m["email"].(string); email != "" {
				id.Email = strings.ToLower(strings.TrimSpace(email))
				if verified, ok := m["email_verified"].(bool); ok {
					id.EmailVerified = verified
				}
			}
		}
	}
	id.Groups, id.GroupSource = ResolveGroups(s, strategies)
	return id
}

// RoleConfig группы и email, от которых зависит роль.
type RoleConfig struct {
	AdminGroup   string
	MemberGroups []string
	AdminEmail   string
}

// ComputeRole вычисляет роль: super_admin — группа администратора и
// совпадающий email, admin — одна из групп участников, иначе user.
func ComputeRole(groups []string, email string, cfg RoleConfig) models.Role {
	set := make(map[string]struct{}, len(groups))
	for _, g := range normalize(groups) {
		set[g] = struct{}{}
	}
	has := func(g string) bool {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			return false
		}
		_, ok := set[g]
		return ok
	}

	adminEmail := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if has(cfg.AdminGroup) && adminEmail != "" && strings.ToLower(strings.TrimSpace(email)) == adminEmail {
		return models.RoleSuperAdmin
	}
	for _, g := range cfg.MemberGroups {
		if has(g) {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}
