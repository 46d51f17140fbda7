package sqlinline

const QSelectAPIKeyProfile = `--sql 0b4f4a1e-6d0a-4f9c-9a67-3d2b8a1c5e77
select user_id, tier, rate_limit
from api_keys
where key = $1::text
  and revoked_at is null
limit 1;
`

const QUpsertAPIKey = `--sql 9c2d7b30-1f5e-4a8b-bd14-8e6f0a92c4d1
insert into api_keys(key, user_id, tier, rate_limit, created_at, updated_at)
values ($1::text, $2::uuid, $3::text, $4::int, now(), now())
on conflict (key) do update
set tier = excluded.tier,
    rate_limit = excluded.rate_limit,
    updated_at = now();
`
