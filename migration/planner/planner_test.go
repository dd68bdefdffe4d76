package planner_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/migration/changeset"
	"github.com/stokaro/dbreconcile/migration/planner"
	"github.com/stokaro/dbreconcile/migration/planner/dialects/postgres"
	"github.com/stokaro/dbreconcile/migration/schemadiff"
)

func TestSynthesize_NewTableIsSingleCreate(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE pages (
			uid INT,
			title VARCHAR(255)
		);
	`))
	diff := schemadiff.RemoveKeyModifications(schemadiff.Compare(desired, sqlschema.NewSchema()))

	cs := planner.Synthesize(diff, planner.ModeUpdate, planner.Options{})

	c.Assert(cs.Len(), qt.Equals, 1)
	creates := cs.Get(changeset.CreateTable)
	c.Assert(creates.Keys(), qt.DeepEquals, []string{"pages.table.pages"})
	c.Assert(creates.Values()[0], qt.Equals, "CREATE TABLE `pages` (\n\t`uid` INT,\n\t`title` VARCHAR(255)\n)")
}

func TestSynthesize_Update(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE cache_hash (
			id int NOT NULL,
			PRIMARY KEY (id)
		) CLEAR=1;
		CREATE TABLE tt_content (
			uid int NOT NULL,
			header varchar(512) DEFAULT '' NOT NULL,
			bodytext text,
			PRIMARY KEY (uid),
			KEY header (header(40)),
			KEY body (bodytext(100))
		) ENGINE=InnoDB;
	`))
	actual := must.Must(sqlschema.Parse(`
		CREATE TABLE tt_content (
			uid int NOT NULL,
			header varchar(255) DEFAULT '' NOT NULL,
			PRIMARY KEY (uid),
			KEY header (header(20))
		) ENGINE=MyISAM;
	`))

	cs := planner.Synthesize(schemadiff.Compare(desired, actual), planner.ModeUpdate, planner.Options{})

	c.Assert(cs.Get(changeset.CreateTable).Keys(), qt.DeepEquals, []string{"cache_hash.table.cache_hash"})
	c.Assert(cs.Get(changeset.ClearTable).Values(), qt.DeepEquals, []string{"TRUNCATE TABLE `cache_hash`"})
	c.Assert(cs.Get(changeset.Add).Values(), qt.DeepEquals, []string{
		"ALTER TABLE `tt_content` ADD `bodytext` text",
		"ALTER TABLE `tt_content` ADD KEY `body` (`bodytext`(100))",
	})
	c.Assert(cs.Get(changeset.Change).Keys(), qt.DeepEquals, []string{
		"tt_content.field.header",
		"tt_content.key.header.drop",
		"tt_content.key.header",
	})
	c.Assert(cs.Get(changeset.Change).Values(), qt.DeepEquals, []string{
		"ALTER TABLE `tt_content` CHANGE `header` `header` varchar(512) DEFAULT '' NOT NULL",
		"ALTER TABLE `tt_content` DROP KEY `header`",
		"ALTER TABLE `tt_content` ADD KEY `header` (`header`(40))",
	})
	c.Assert(cs.Get(changeset.ChangeTable).Values(), qt.DeepEquals, []string{"ALTER TABLE `tt_content` ENGINE=InnoDB"})
	c.Assert(cs.Get(changeset.Drop), qt.IsNil)
}

func TestSynthesize_Remove(t *testing.T) {
	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE pages (
			uid int NOT NULL,
			PRIMARY KEY (uid)
		);
	`))
	actual := must.Must(sqlschema.Parse(`
		CREATE TABLE pages (
			uid int NOT NULL,
			legacy tinyint DEFAULT '0' NOT NULL,
			zzz_deleted_old int,
			PRIMARY KEY (uid),
			KEY legacy (legacy)
		);
		CREATE TABLE tmp_cache (id int NOT NULL);
		CREATE TABLE zzz_deleted_sys_log (uid int NOT NULL);
	`))
	diff := schemadiff.Compare(actual, desired)

	tests := []struct {
		name     string
		opts     planner.Options
		expected map[changeset.ChangeType][]string
	}{
		{
			name: "prefix disabled drops everything",
			opts: planner.Options{RemovalPrefixDisabled: true},
			expected: map[changeset.ChangeType][]string{
				changeset.Drop: {
					"ALTER TABLE `pages` DROP `legacy`",
					"ALTER TABLE `pages` DROP `zzz_deleted_old`",
					"ALTER TABLE `pages` DROP KEY `legacy`",
				},
				changeset.DropTable: {
					"DROP TABLE `tmp_cache`",
					"DROP TABLE `zzz_deleted_sys_log`",
				},
			},
		},
		{
			name: "prefix enabled renames",
			opts: planner.Options{},
			expected: map[changeset.ChangeType][]string{
				changeset.Change: {
					"ALTER TABLE `pages` CHANGE `legacy` `zzz_deleted_legacy` tinyint DEFAULT '0' NOT NULL",
				},
				changeset.Drop: {
					"ALTER TABLE `pages` DROP `zzz_deleted_old`",
					"ALTER TABLE `pages` DROP KEY `legacy`",
				},
				changeset.ChangeTable: {
					"ALTER TABLE `tmp_cache` RENAME `zzz_deleted_tmp_cache`",
				},
				changeset.DropTable: {
					"DROP TABLE `zzz_deleted_sys_log`",
				},
			},
		},
		{
			name: "custom prefix",
			opts: planner.Options{DeletedPrefix: "old_"},
			expected: map[changeset.ChangeType][]string{
				changeset.Change: {
					"ALTER TABLE `pages` CHANGE `legacy` `old_legacy` tinyint DEFAULT '0' NOT NULL",
					"ALTER TABLE `pages` CHANGE `zzz_deleted_old` `old_zzz_deleted_old` int",
				},
				changeset.Drop: {
					"ALTER TABLE `pages` DROP KEY `legacy`",
				},
				changeset.ChangeTable: {
					"ALTER TABLE `tmp_cache` RENAME `old_tmp_cache`",
					"ALTER TABLE `zzz_deleted_sys_log` RENAME `old_zzz_deleted_sys_log`",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			cs := planner.Synthesize(diff, planner.ModeRemove, tt.opts)

			total := 0
			for changeType, expected := range tt.expected {
				c.Assert(cs.Get(changeType).Values(), qt.DeepEquals, expected, qt.Commentf("change type %s", changeType))
				total += len(expected)
			}
			c.Assert(cs.Len(), qt.Equals, total)
		})
	}
}

func TestSynthesize_RemoveIgnoresChangedCategory(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`CREATE TABLE pages (title varchar(255));`))
	actual := must.Must(sqlschema.Parse(`CREATE TABLE pages (title varchar(100));`))

	diff := schemadiff.Compare(actual, desired)
	c.Assert(diff.Changed, qt.HasLen, 1)

	cs := planner.Synthesize(diff, planner.ModeRemove, planner.Options{RemovalPrefixDisabled: true})
	c.Assert(cs.Len(), qt.Equals, 0)
}

func TestSynthesize_PostgresKeysOutsideCreate(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE pages (
			uid int NOT NULL,
			pid int NOT NULL,
			PRIMARY KEY (uid),
			KEY parent (pid)
		);
	`))
	diff := schemadiff.Compare(desired, sqlschema.NewSchema())

	cs := planner.Synthesize(diff, planner.ModeUpdate, planner.Options{Dialect: postgres.New()})

	c.Assert(cs.Get(changeset.CreateTable).Keys(), qt.DeepEquals, []string{"pages.table.pages", "pages.key.parent"})
	c.Assert(cs.Get(changeset.CreateTable).Values()[1], qt.Equals, `CREATE INDEX "pages_parent" ON "pages" ("pid")`)
}

func TestSynthesize_AllStatementsStartUpperCase(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE a (x int, y int, KEY y (y)) ENGINE=InnoDB;
		CREATE TABLE b (x int) CLEAR=1;
	`))
	actual := must.Must(sqlschema.Parse(`
		CREATE TABLE a (x bigint, z int, KEY y (x)) ENGINE=MyISAM;
		CREATE TABLE c (x int);
	`))

	for _, dialectName := range []string{"mysql", "postgres"} {
		dialect := must.Must(planner.GetDialect(dialectName))
		opts := planner.Options{Dialect: dialect, RemovalPrefixDisabled: true}

		cs := planner.Synthesize(schemadiff.Compare(desired, actual), planner.ModeUpdate, opts)
		cs.Merge(planner.Synthesize(schemadiff.Compare(actual, desired), planner.ModeRemove, opts))

		considered := changeset.NewConsideredTypes()
		considered.Add(changeset.RemoveTypes...)
		for _, sql := range changeset.Order(changeset.SelectConsideredTypes(cs, considered)) {
			head := sql[:4]
			c.Assert(head, qt.Matches, `[A-Z]{4}`, qt.Commentf("%s: %s", dialectName, sql))
		}
	}
}

func TestGetDialect(t *testing.T) {
	c := qt.New(t)

	d, err := planner.GetDialect("mariadb")
	c.Assert(err, qt.IsNil)
	c.Assert(d.Name(), qt.Equals, "mysql")

	d, err = planner.GetDialect("pgx")
	c.Assert(err, qt.IsNil)
	c.Assert(d.Name(), qt.Equals, "postgres")

	_, err = planner.GetDialect("oracle")
	c.Assert(err, qt.ErrorMatches, `unsupported dialect: "oracle"`)
}

func TestMode_String(t *testing.T) {
	c := qt.New(t)
	c.Assert(planner.ModeRemove.String(), qt.Equals, "remove")
	c.Assert(planner.ModeUpdate.String(), qt.Equals, "update")
}

func TestTranslateSchema(t *testing.T) {
	c := qt.New(t)

	desired := must.Must(sqlschema.Parse(`
		CREATE TABLE pages (
			uid int(11) unsigned NOT NULL auto_increment,
			price decimal(10,2),
			PRIMARY KEY (uid)
		) ENGINE=InnoDB CLEAR=1;
	`))

	translated := planner.TranslateSchema(desired, postgres.New())

	pages := translated.Table("pages")
	c.Assert(pages.Columns[0].Type, qt.Equals, "integer")
	c.Assert(pages.Columns[1].Type, qt.Equals, "numeric(10,2)")
	c.Assert(pages.Indexes, qt.DeepEquals, desired.Table("pages").Indexes)
	c.Assert(pages.Options, qt.DeepEquals, map[string]string{"ENGINE": "InnoDB"})
	c.Assert(pages.Clear, qt.IsTrue)

	// the input keeps its MySQL spelling
	c.Assert(desired.Table("pages").Columns[0].Type, qt.Equals, "int(11) unsigned")

	same := planner.TranslateSchema(desired, must.Must(planner.GetDialect("mysql")))
	c.Assert(schemadiff.Compare(same, desired).HasChanges(), qt.IsFalse)
}
