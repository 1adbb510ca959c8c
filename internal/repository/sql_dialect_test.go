package repository

import (
	"strings"
	"testing"
)

func TestBuildSearchLikeConditionSQLite(t *testing.T) {
	condition, argCount := buildSearchLikeConditionByDialect("sqlite", []string{"slug", "name", "description"})
	if argCount != 3 {
		t.Fatalf("arg count want 3 got %d", argCount)
	}
	if !strings.Contains(condition, "slug LIKE ?") {
		t.Fatalf("condition should contain slug LIKE, got %s", condition)
	}
	if !strings.Contains(condition, "name LIKE ?") {
		t.Fatalf("condition should contain name LIKE, got %s", condition)
	}
	if strings.Contains(condition, "ILIKE") {
		t.Fatalf("sqlite should not use ILIKE, got %s", condition)
	}
}

func TestBuildSearchLikeConditionPostgres(t *testing.T) {
	condition, argCount := buildSearchLikeConditionByDialect("postgres", []string{"slug", "name"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if !strings.Contains(condition, "slug ILIKE ?") {
		t.Fatalf("postgres should use ILIKE, got %s", condition)
	}
}

func TestBuildSearchLikeConditionSkipsEmptyColumns(t *testing.T) {
	condition, argCount := buildSearchLikeConditionByDialect("sqlite", []string{"slug", "  ", ""})
	if argCount != 1 {
		t.Fatalf("arg count want 1 got %d", argCount)
	}
	if condition != "slug LIKE ?" {
		t.Fatalf("condition want slug LIKE ? got %s", condition)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
